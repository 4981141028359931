package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"swapsum/internal/config"
	"swapsum/internal/dataprocessing"
	"swapsum/pkg/contracts/domain"
)

// ExcludedCSVName is the CSV file holding the excluded-records table.
const ExcludedCSVName = "excluded_records.csv"

// Result reports the files written by one export run.
type Result struct {
	WorkbookPath string        `json:"workbook_path"`
	CSVPaths     []string      `json:"csv_paths,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Exporter writes an aggregation result to disk: always the summary
// workbook, and per-client CSV files when enabled.
type Exporter struct {
	cfg      config.ExportConfig
	paths    config.PathsConfig
	workbook *WorkbookExporter
	csv      *CSVWriter
	logger   *slog.Logger
}

// New creates an exporter from configuration.
func New(cfg config.ExportConfig, paths config.PathsConfig, columns config.ColumnsConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		cfg:      cfg,
		paths:    paths,
		workbook: NewWorkbookExporter(columns),
		csv:      NewCSVWriter(paths),
		logger:   logger.With(slog.String("component", "exporter")),
	}
}

// Export writes the workbook and, when enabled, the per-client CSV files.
// CSV files are written concurrently, bounded by the configured concurrency.
func (e *Exporter) Export(ctx context.Context, result *domain.AggregationResult) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(e.paths.ReportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	workbookPath, err := e.writeWorkbook(result)
	if err != nil {
		return nil, err
	}

	out := &Result{WorkbookPath: workbookPath}

	if e.cfg.EnableCSV {
		paths, err := e.writeCSVs(ctx, result)
		if err != nil {
			return nil, err
		}
		out.CSVPaths = paths
	}

	out.Elapsed = time.Since(start)
	e.logger.InfoContext(ctx, "export completed",
		slog.String("workbook", out.WorkbookPath),
		slog.Int("csv_files", len(out.CSVPaths)),
		slog.Duration("elapsed", out.Elapsed))
	return out, nil
}

func (e *Exporter) writeWorkbook(result *domain.AggregationResult) (string, error) {
	f, err := e.workbook.Build(result)
	if err != nil {
		return "", fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()

	path := filepath.Join(e.paths.ReportsDir, e.cfg.WorkbookName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

func (e *Exporter) writeCSVs(ctx context.Context, result *domain.AggregationResult) ([]string, error) {
	concurrency := e.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var paths []string
	record := func(p string) {
		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
	}

	names := newFileNamer()
	for _, client := range result.Clients {
		table := result.Summaries[client]
		filename := names.name(client) + "_summary.csv"

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.writeSummaryCSV(filename, table); err != nil {
				return fmt.Errorf("failed to export CSV for %q: %w", table.Client, err)
			}
			record(filepath.Join(e.paths.ReportsDir, filename))
			return nil
		})
	}

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.writeExcludedCSV(&result.Excluded); err != nil {
			return fmt.Errorf("failed to export excluded records CSV: %w", err)
		}
		record(filepath.Join(e.paths.ReportsDir, ExcludedCSVName))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func (e *Exporter) writeSummaryCSV(filename string, table *domain.SummaryTable) error {
	rows := make([][]string, 0, len(table.Rows)+1)
	for i := range table.Rows {
		rows = append(rows, summaryCSVRow(&table.Rows[i]))
	}
	rows = append(rows, summaryCSVRow(&table.TotalRow))

	return e.csv.WriteSimpleCSV(filename, dataprocessing.SummaryColumns(), rows)
}

func (e *Exporter) writeExcludedCSV(excluded *domain.ExcludedTable) error {
	headers := e.workbook.excludedHeaders(excluded)
	rows := make([][]string, 0, len(excluded.Records))
	for i := range excluded.Records {
		rows = append(rows, excludedCells(&excluded.Records[i].ExchangeRecord, len(headers)))
	}
	return e.csv.WriteSimpleCSV(ExcludedCSVName, headers, rows)
}

func summaryCSVRow(row *domain.SummaryRow) []string {
	cells := []string{row.User}
	for _, n := range dataprocessing.SummaryRowCells(*row) {
		cells = append(cells, formatInt(n))
	}
	return cells
}

// fileNamer produces unique filesystem-safe base names from client values.
type fileNamer struct {
	used map[string]struct{}
}

func newFileNamer() *fileNamer {
	return &fileNamer{used: make(map[string]struct{})}
}

func (n *fileNamer) name(raw string) string {
	base := sanitizeFileName(raw)
	if base == "" {
		base = "client"
	}

	candidate := base
	for i := 2; ; i++ {
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s~%d", base, i)
	}
}

func sanitizeFileName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
