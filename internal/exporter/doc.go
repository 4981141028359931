// Package exporter writes pipeline results to external formats.
//
// This package contains three main components:
//
// WorkbookExporter: Builds the multi-sheet Excel summary workbook, one sheet
// per client plus the excluded-records sheet.
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility.
//
// Exporter: Orchestrates a full export run, writing the workbook and the
// optional per-client CSV files concurrently.
//
// Example usage:
//
//	exp := exporter.New(cfg.Export, cfg.Paths, cfg.Pipeline.Columns, logger)
//
//	out, err := exp.Export(ctx, result)
//	if err != nil {
//		return err
//	}
//	fmt.Println(out.WorkbookPath)
package exporter
