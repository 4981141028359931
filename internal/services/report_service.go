package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"swapsum/internal/config"
	"swapsum/internal/dataprocessing"
	apierrors "swapsum/internal/errors"
	"swapsum/internal/exporter"
	"swapsum/internal/infrastructure"
	"swapsum/internal/warehouse"
	"swapsum/pkg/contracts/domain"
)

// ReportSummary is the response payload of one report run.
type ReportSummary struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`

	RecordCount          int      `json:"record_count"`
	Clients              []string `json:"clients"`
	DuplicateCount       int      `json:"duplicate_count"`
	SelfExchangeCount    int      `json:"self_exchange_count"`
	DroppedMissingClient int      `json:"dropped_missing_client"`
	DroppedMissingUser   int      `json:"dropped_missing_user"`

	WorkbookPath string   `json:"workbook_path"`
	WorkbookName string   `json:"workbook_name"`
	CSVPaths     []string `json:"csv_paths,omitempty"`

	Result *domain.AggregationResult `json:"result,omitempty"`
}

// ReportService runs the complete report flow for one uploaded workbook.
type ReportService struct {
	cfg       *config.Config
	pipeline  *dataprocessing.Pipeline
	exporter  *exporter.Exporter
	warehouse *warehouse.Warehouse
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewReportService wires the report service from configuration. The
// warehouse and metrics may be nil when disabled.
func NewReportService(cfg *config.Config, wh *warehouse.Warehouse, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "report_service"))

	pipeline := dataprocessing.NewPipeline(dataprocessing.PipelineConfig{
		DedupWindow:     cfg.Pipeline.DedupWindow,
		SelfExchange:    cfg.Pipeline.SelfExchange,
		EligibleClients: cfg.Pipeline.EligibleClients,
	}, logger)

	exp := exporter.New(cfg.Export, cfg.Paths, cfg.Pipeline.Columns, logger)

	return &ReportService{
		cfg:       cfg,
		pipeline:  pipeline,
		exporter:  exp,
		warehouse: wh,
		metrics:   metrics,
		logger:    logger,
	}
}

// GenerateFromReader parses a workbook stream and runs the full report
// flow. source names the upload for logging and run history.
func (s *ReportService) GenerateFromReader(ctx context.Context, r io.Reader, source string) (*ReportSummary, error) {
	records, header, err := dataprocessing.ParseReader(r, s.columnMapping())
	if err != nil {
		s.recordRun(ctx, source, 0, 0, err)
		return nil, apierrors.SchemaError(err)
	}
	return s.generate(ctx, records, header, source)
}

// GenerateFromFile parses a workbook on disk and runs the full report flow.
func (s *ReportService) GenerateFromFile(ctx context.Context, path string) (*ReportSummary, error) {
	records, header, err := dataprocessing.ParseFile(path, s.columnMapping())
	if err != nil {
		s.recordRun(ctx, filepath.Base(path), 0, 0, err)
		return nil, apierrors.SchemaError(err)
	}
	return s.generate(ctx, records, header, filepath.Base(path))
}

func (s *ReportService) generate(ctx context.Context, records []domain.ExchangeRecord, header []string, source string) (*ReportSummary, error) {
	start := time.Now()

	if len(records) == 0 {
		s.recordRun(ctx, source, time.Since(start), 0, apierrors.ErrNoRecords)
		return nil, apierrors.ErrNoRecords
	}

	runID := uuid.New().String()
	logger := s.logger.With(
		slog.String("run_id", runID),
		slog.String("source", source))

	result, annotated, err := s.pipeline.Run(ctx, records)
	if err != nil {
		s.recordRun(ctx, source, time.Since(start), int64(len(records)), err)
		return nil, apierrors.ErrReportGeneration(err)
	}
	// Excluded records export with every original input column.
	result.Excluded.Header = header

	out, err := s.exporter.Export(ctx, result)
	if err != nil {
		s.recordRun(ctx, source, time.Since(start), int64(len(records)), err)
		return nil, apierrors.ExportError(err)
	}

	if s.warehouse != nil {
		// Warehouse is a secondary sink: a failed upload is logged and
		// counted but never fails a run whose files are already written.
		if err := s.warehouse.StoreRun(ctx, runID, source, annotated, result); err != nil {
			logger.ErrorContext(ctx, "warehouse upload failed", slog.String("error", err.Error()))
			if s.metrics != nil {
				s.metrics.WarehouseUploadErrors.Add(ctx, 1)
			}
		} else if s.metrics != nil {
			s.metrics.WarehouseUploadsTotal.Add(ctx, 1)
		}
	}

	s.recordRun(ctx, source, time.Since(start), int64(len(records)), nil)

	logger.InfoContext(ctx, "report generated",
		slog.Int("records", result.RecordCount),
		slog.Int("clients", len(result.Clients)),
		slog.String("workbook", out.WorkbookPath),
		slog.Duration("elapsed", time.Since(start)))

	return &ReportSummary{
		RunID:                runID,
		Source:               source,
		CreatedAt:            start.UTC(),
		RecordCount:          result.RecordCount,
		Clients:              result.Clients,
		DuplicateCount:       result.DuplicateCount,
		SelfExchangeCount:    result.SelfExchangeCount,
		DroppedMissingClient: result.DroppedMissingClient,
		DroppedMissingUser:   result.DroppedMissingUser,
		WorkbookPath:         out.WorkbookPath,
		WorkbookName:         s.cfg.Export.WorkbookName,
		CSVPaths:             out.CSVPaths,
		Result:               result,
	}, nil
}

// WorkbookPath returns the location of the latest generated workbook.
// ErrReportNotFound is returned when no report has been generated yet.
func (s *ReportService) WorkbookPath(ctx context.Context) (string, error) {
	path := filepath.Join(s.cfg.Paths.ReportsDir, s.cfg.Export.WorkbookName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apierrors.ErrReportNotFound
		}
		return "", apierrors.FileSystemError("stat workbook", err)
	}
	return path, nil
}

// ListRuns returns the stored run history, newest first. Without a
// warehouse there is no history and the listing is empty.
func (s *ReportService) ListRuns(ctx context.Context) ([]warehouse.RunInfo, error) {
	if s.warehouse == nil {
		return nil, nil
	}
	runs, err := s.warehouse.ListRuns(ctx)
	if err != nil {
		return nil, apierrors.WarehouseError(err)
	}
	return runs, nil
}

func (s *ReportService) columnMapping() dataprocessing.ColumnMapping {
	cols := s.cfg.Pipeline.Columns
	return dataprocessing.ColumnMapping{
		Client:       cols.Client,
		User:         cols.User,
		Manufacturer: cols.Manufacturer,
		Battery:      cols.Battery,
		Vehicle:      cols.Vehicle,
		Timestamp:    cols.Timestamp,
		SourceEntity: cols.SourceEntity,
		SourceGroup:  cols.SourceGroup,
	}
}

func (s *ReportService) recordRun(ctx context.Context, source string, duration time.Duration, records int64, err error) {
	infrastructure.RecordReportRunMetrics(ctx, s.metrics, source, duration, records, err)
}
