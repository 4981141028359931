package dataprocessing

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"swapsum/pkg/contracts/domain"
)

// ColumnMapping maps logical record roles to column names in the upload
// schema. Only Client is mandatory; unresolved optional roles yield absent
// fields on every record.
type ColumnMapping struct {
	Client       string
	User         string
	Manufacturer string
	Battery      string
	Vehicle      string
	Timestamp    string
	SourceEntity string
	SourceGroup  string
}

// DefaultColumnMapping returns the column names used by the standard
// nationwide exchange export.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Client:       "user_company(所属)",
		User:         "user_name",
		Manufacturer: "自転車メーカー名",
		Battery:      "battery_remaining",
		Vehicle:      "車両番号",
		Timestamp:    "交換日時",
		SourceEntity: "交換元組織",
		SourceGroup:  "交換元部署",
	}
}

// MissingColumnError reports a required role that could not be resolved
// against the input schema. It carries the available columns so the caller
// can surface them.
type MissingColumnError struct {
	Role      string
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q (role %s) not found in input; available columns: %s",
		e.Column, e.Role, strings.Join(e.Available, ", "))
}

// Schema holds resolved column indexes for one input table. An index of -1
// means the role is absent from the schema.
type Schema struct {
	Header       []string
	Client       int
	User         int
	Manufacturer int
	Battery      int
	Vehicle      int
	Timestamp    int
	SourceEntity int
	SourceGroup  int
}

// ResolveSchema locates each mapped column in the header row. The client
// column is required; resolution fails fast before any parsing when it is
// missing, so no partial aggregation can be produced from a broken schema.
func ResolveSchema(header []string, mapping ColumnMapping) (*Schema, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	find := func(column string) int {
		if column == "" {
			return -1
		}
		if i, ok := index[strings.TrimSpace(column)]; ok {
			return i
		}
		return -1
	}

	s := &Schema{
		Header:       header,
		Client:       find(mapping.Client),
		User:         find(mapping.User),
		Manufacturer: find(mapping.Manufacturer),
		Battery:      find(mapping.Battery),
		Vehicle:      find(mapping.Vehicle),
		Timestamp:    find(mapping.Timestamp),
		SourceEntity: find(mapping.SourceEntity),
		SourceGroup:  find(mapping.SourceGroup),
	}

	if s.Client < 0 {
		available := make([]string, 0, len(header))
		for _, name := range header {
			if strings.TrimSpace(name) != "" {
				available = append(available, strings.TrimSpace(name))
			}
		}
		return nil, &MissingColumnError{Role: "client", Column: mapping.Client, Available: available}
	}

	return s, nil
}

// timestampLayouts are tried in order when parsing the exchange timestamp.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
	"1/2/06 15:04",
	"01-02-06 15:04",
}

// ParseFile reads the first sheet of an exchange workbook and extracts the
// record set plus the header row it resolved against. Per-row problems are
// recovered locally: a row never aborts the run, a bad cell only leaves the
// matching field absent.
func ParseFile(path string, mapping ColumnMapping) ([]domain.ExchangeRecord, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, mapping)
}

// ParseReader reads an exchange workbook from a stream, typically a
// multipart upload body.
func ParseReader(r io.Reader, mapping ColumnMapping) ([]domain.ExchangeRecord, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, mapping)
}

func parseWorkbook(f *excelize.File, mapping ColumnMapping) ([]domain.ExchangeRecord, []string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return ParseRows(rows, mapping)
}

// ParseRows extracts the record set from a rectangular table whose first
// non-empty row matching the client column is the header. The returned
// header carries every input column, including ones no role maps to, so
// excluded-record exports can reproduce the original table.
func ParseRows(rows [][]string, mapping ColumnMapping) ([]domain.ExchangeRecord, []string, error) {
	headerIdx, schema, err := findHeader(rows, mapping)
	if err != nil {
		return nil, nil, err
	}

	records := make([]domain.ExchangeRecord, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if emptyRow(row) {
			continue
		}
		records = append(records, parseRow(row, schema))
	}
	return records, schema.Header, nil
}

// findHeader scans for the row containing the client column and resolves the
// schema against it. When no row matches, the first non-empty row is treated
// as the header so the resulting error lists its columns.
func findHeader(rows [][]string, mapping ColumnMapping) (int, *Schema, error) {
	client := strings.TrimSpace(mapping.Client)
	firstNonEmpty := -1
	for i, row := range rows {
		if emptyRow(row) {
			continue
		}
		if firstNonEmpty < 0 {
			firstNonEmpty = i
		}
		for _, cell := range row {
			if strings.TrimSpace(cell) == client {
				schema, err := ResolveSchema(row, mapping)
				if err != nil {
					return 0, nil, err
				}
				return i, schema, nil
			}
		}
	}

	if firstNonEmpty < 0 {
		return 0, nil, fmt.Errorf("input table is empty")
	}
	_, err := ResolveSchema(rows[firstNonEmpty], mapping)
	return 0, nil, err
}

func parseRow(row []string, schema *Schema) domain.ExchangeRecord {
	rec := domain.ExchangeRecord{
		Client:       cell(row, schema.Client),
		User:         cell(row, schema.User),
		Manufacturer: cell(row, schema.Manufacturer),
		Vehicle:      cell(row, schema.Vehicle),
		SourceEntity: cell(row, schema.SourceEntity),
		SourceGroup:  cell(row, schema.SourceGroup),
		Raw:          append([]string(nil), row...),
	}

	if raw := cell(row, schema.Battery); raw != "" {
		raw = strings.TrimSuffix(raw, "%")
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			rec.Battery = &v
		}
	}

	if raw := cell(row, schema.Timestamp); raw != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				rec.ExchangedAt = t
				rec.TimeValid = true
				break
			}
		}
	}

	return rec
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
