package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"swapsum/internal/config"
	"swapsum/internal/files"
	"swapsum/internal/infrastructure"
	"swapsum/internal/services"
	"swapsum/internal/validation"
	"swapsum/internal/warehouse"
)

// process runs the exchange pipeline against a local workbook, or
// against every workbook in a drop directory, without starting the
// HTTP server.
func main() {
	inPath := flag.String("in", "", "input .xlsx workbook or a directory of workbooks (required)")
	outDir := flag.String("out", "", "output directory for report files (defaults to configured reports dir)")
	archive := flag.Bool("archive", false, "move processed workbooks into a processed/ subdirectory")
	noWarehouse := flag.Bool("no-warehouse", false, "skip storing runs in the warehouse even when enabled")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: process -in <workbook.xlsx|dir> [-out <dir>] [-archive] [-no-warehouse]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.Paths.ReportsDir = *outDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	ctx := infrastructure.EnsureTraceID(context.Background())

	var wh *warehouse.Warehouse
	if cfg.Warehouse.Enabled && !*noWarehouse {
		wh, err = warehouse.Open(cfg.Warehouse, logger)
		if err != nil {
			logger.ErrorContext(ctx, "failed to open warehouse", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer wh.Close()
	}

	svc := services.NewReportService(cfg, wh, nil, logger)
	validator := validation.NewWorkbookValidator(cfg.Server.MaxUploadBytes, logger)

	paths, err := inputWorkbooks(*inPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve input", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(paths) == 0 {
		logger.WarnContext(ctx, "no workbooks found", slog.String("in", *inPath))
		return
	}

	manager := files.NewManager(logger)
	failed := 0
	for _, path := range paths {
		if err := processOne(ctx, svc, validator, path); err != nil {
			logger.ErrorContext(ctx, "workbook failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			failed++
			continue
		}
		if *archive {
			if _, err := manager.Archive(path); err != nil {
				logger.WarnContext(ctx, "archiving failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}
	}

	if failed > 0 {
		logger.ErrorContext(ctx, "batch finished with failures",
			slog.Int("failed", failed),
			slog.Int("total", len(paths)))
		os.Exit(1)
	}
}

// inputWorkbooks expands a directory argument into its workbook paths;
// a file argument passes through untouched.
func inputWorkbooks(in string) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{in}, nil
	}

	found, err := files.NewDiscovery(in).FindWorkbooks(".")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(found))
	for _, wb := range found {
		paths = append(paths, wb.Path)
	}
	return paths, nil
}

func processOne(ctx context.Context, svc *services.ReportService, validator *validation.WorkbookValidator, path string) error {
	if err := validator.Validate(path); err != nil {
		return err
	}

	summary, err := svc.GenerateFromFile(ctx, path)
	if err != nil {
		return err
	}

	infrastructure.InfoContext(ctx, "report generated",
		slog.String("run_id", summary.RunID),
		slog.String("source", path),
		slog.Int("records", summary.RecordCount),
		slog.Int("clients", len(summary.Clients)),
		slog.Int("duplicates", summary.DuplicateCount),
		slog.Int("self_exchanges", summary.SelfExchangeCount))

	fmt.Printf("Workbook: %s\n", summary.WorkbookPath)
	for _, p := range summary.CSVPaths {
		fmt.Printf("CSV:      %s\n", p)
	}
	return nil
}
