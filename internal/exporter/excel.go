package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"swapsum/internal/config"
	"swapsum/internal/dataprocessing"
	"swapsum/pkg/contracts/domain"
)

// ExcludedSheetName is the sheet holding self-exchange records removed from
// the client rollups.
const ExcludedSheetName = "除外レコード"

// maxSheetNameRunes is the Excel limit on sheet name length.
const maxSheetNameRunes = 31

// WorkbookExporter builds the multi-sheet summary workbook.
type WorkbookExporter struct {
	columns config.ColumnsConfig
}

// NewWorkbookExporter creates a workbook exporter using the configured
// input column headers for the excluded-records sheet.
func NewWorkbookExporter(columns config.ColumnsConfig) *WorkbookExporter {
	return &WorkbookExporter{columns: columns}
}

// Build renders one aggregation result into a workbook: one summary sheet
// per client in first-seen order, then the excluded-records sheet. The
// caller owns the returned file and must Close it.
func (e *WorkbookExporter) Build(result *domain.AggregationResult) (*excelize.File, error) {
	f := excelize.NewFile()

	names := newSheetNamer()
	first := true
	for _, client := range result.Clients {
		table := result.Summaries[client]
		name := names.name(client)

		if first {
			// Replace the default sheet rather than leaving it empty.
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename sheet for %q: %w", client, err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet for %q: %w", client, err)
			}
		}

		if err := e.writeSummarySheet(f, name, table); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := e.writeExcludedSheet(f, names, &result.Excluded, first); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func (e *WorkbookExporter) writeSummarySheet(f *excelize.File, sheet string, table *domain.SummaryTable) error {
	header := toAnySlice(dataprocessing.SummaryColumns())
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %q: %w", sheet, err)
	}

	rowNum := 2
	for i := range table.Rows {
		if err := e.writeSummaryRow(f, sheet, rowNum, &table.Rows[i]); err != nil {
			return err
		}
		rowNum++
	}
	return e.writeSummaryRow(f, sheet, rowNum, &table.TotalRow)
}

func (e *WorkbookExporter) writeSummaryRow(f *excelize.File, sheet string, rowNum int, row *domain.SummaryRow) error {
	cells := []interface{}{row.User}
	for _, n := range dataprocessing.SummaryRowCells(*row) {
		cells = append(cells, n)
	}

	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d on %q: %w", rowNum, sheet, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d on %q: %w", rowNum, sheet, err)
	}
	return nil
}

func (e *WorkbookExporter) writeExcludedSheet(f *excelize.File, names *sheetNamer, excluded *domain.ExcludedTable, isOnlySheet bool) error {
	name := names.name(ExcludedSheetName)
	if isOnlySheet {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to rename excluded sheet: %w", err)
		}
	} else {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create excluded sheet: %w", err)
		}
	}

	headers := e.excludedHeaders(excluded)
	header := toAnySlice(headers)
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write excluded header: %w", err)
	}

	for i := range excluded.Records {
		cells := toAnySlice(excludedCells(&excluded.Records[i].ExchangeRecord, len(headers)))
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address excluded row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write excluded row %d: %w", i+2, err)
		}
	}
	return nil
}

// excludedHeaders returns the original input header when the parse captured
// one, so every input column round-trips, and the configured column names
// otherwise.
func (e *WorkbookExporter) excludedHeaders(excluded *domain.ExcludedTable) []string {
	if len(excluded.Header) > 0 {
		return append([]string(nil), excluded.Header...)
	}
	return []string{
		e.columns.Client,
		e.columns.User,
		e.columns.Manufacturer,
		e.columns.Battery,
		e.columns.Vehicle,
		e.columns.Timestamp,
		e.columns.SourceEntity,
		e.columns.SourceGroup,
	}
}

// sheetNamer produces valid, unique Excel sheet names from client values.
type sheetNamer struct {
	used map[string]struct{}
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: make(map[string]struct{})}
}

// name sanitizes characters Excel forbids, truncates to the 31-rune limit,
// and appends a numeric suffix on collision.
func (n *sheetNamer) name(raw string) string {
	base := sanitizeSheetName(raw)
	if base == "" {
		base = "Sheet"
	}
	base = truncateRunes(base, maxSheetNameRunes)

	candidate := base
	for i := 2; ; i++ {
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
		suffix := fmt.Sprintf("~%d", i)
		candidate = truncateRunes(base, maxSheetNameRunes-len(suffix)) + suffix
	}
}

func sanitizeSheetName(s string) string {
	replacer := strings.NewReplacer(
		":", "_",
		"\\", "_",
		"/", "_",
		"?", "_",
		"*", "_",
		"[", "_",
		"]", "_",
	)
	return strings.TrimSpace(replacer.Replace(s))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func toAnySlice(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
