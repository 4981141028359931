package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapsum/internal/config"
	"swapsum/internal/dataprocessing"
	"swapsum/pkg/contracts/domain"
)

func testResult(t *testing.T) *domain.AggregationResult {
	t.Helper()

	battery := func(v float64) *float64 { return &v }
	ts := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	records := []domain.AnnotatedRecord{
		{
			ExchangeRecord: domain.ExchangeRecord{
				Client: "ClientA", User: "yamada", Manufacturer: "Panasonic",
				Battery: battery(30), Vehicle: "V-1", ExchangedAt: ts, TimeValid: true,
			},
			Classification: domain.ClassificationInSpec,
		},
		{
			ExchangeRecord: domain.ExchangeRecord{
				Client: "ClientA", User: "yamada", Manufacturer: "YAMAHA",
				Battery: battery(50), Vehicle: "V-2", ExchangedAt: ts, TimeValid: true,
			},
			Classification: domain.ClassificationOutOfSpec,
		},
		{
			ExchangeRecord: domain.ExchangeRecord{
				Client: "ClientB", User: "suzuki", Manufacturer: "Panasonic",
				Battery: battery(80), Vehicle: "V-3", ExchangedAt: ts, TimeValid: true,
			},
			Classification: domain.ClassificationOutOfSpec,
			Duplicate:      true,
		},
		{
			ExchangeRecord: domain.ExchangeRecord{
				Client: "ClientA", User: "staff", Manufacturer: "Panasonic",
				Battery: battery(40), Vehicle: "V-4", ExchangedAt: ts, TimeValid: true,
				SourceEntity: "EntityA",
			},
			Classification: domain.ClassificationInSpec,
			SelfExchange:   true,
		},
	}

	return dataprocessing.NewAggregator().Aggregate(records)
}

func TestWorkbookExporter_Build(t *testing.T) {
	exp := NewWorkbookExporter(config.DefaultColumns())

	f, err := exp.Build(testResult(t))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, []string{"ClientA", "ClientB", ExcludedSheetName}, sheets)

	// Header row on a client sheet follows the summary column layout.
	got, err := f.GetCellValue("ClientA", "A1")
	require.NoError(t, err)
	assert.Equal(t, "user_name", got)

	// First user row, then the total row.
	got, err = f.GetCellValue("ClientA", "A2")
	require.NoError(t, err)
	assert.Equal(t, "yamada", got)

	got, err = f.GetCellValue("ClientA", "A3")
	require.NoError(t, err)
	assert.Equal(t, dataprocessing.TotalRowLabel, got)

	// Excluded sheet keeps the input headers and raw record values.
	got, err = f.GetCellValue(ExcludedSheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "user_company(所属)", got)

	got, err = f.GetCellValue(ExcludedSheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "staff", got)
}

func TestWorkbookExporter_ExcludedKeepsUnmappedColumns(t *testing.T) {
	result := testResult(t)
	result.Excluded.Header = []string{
		"user_company(所属)", "user_name", "自転車メーカー名", "battery_remaining",
		"車両番号", "交換日時", "交換元組織", "交換元部署", "memo",
	}
	result.Excluded.Records[0].Raw = []string{
		"ClientA", "staff", "Panasonic", "40", "V-4",
		"2025-07-01 09:00:00", "EntityA", "", "important-note",
	}

	exp := NewWorkbookExporter(config.DefaultColumns())
	f, err := exp.Build(result)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue(ExcludedSheetName, "I1")
	require.NoError(t, err)
	assert.Equal(t, "memo", got)

	got, err = f.GetCellValue(ExcludedSheetName, "I2")
	require.NoError(t, err)
	assert.Equal(t, "important-note", got)
}

func TestExcludedCells(t *testing.T) {
	rec := &domain.ExchangeRecord{
		Client: "ClientA", User: "staff",
		Raw: []string{"ClientA", "staff", "note"},
	}

	// Raw wins and pads to the header width.
	assert.Equal(t, []string{"ClientA", "staff", "note", ""}, excludedCells(rec, 4))

	// Without Raw the mapped fields render in input column order.
	rec.Raw = nil
	cells := excludedCells(rec, 8)
	assert.Equal(t, "ClientA", cells[0])
	assert.Len(t, cells, 8)
}

func TestWorkbookExporter_EmptyResult(t *testing.T) {
	exp := NewWorkbookExporter(config.DefaultColumns())

	f, err := exp.Build(&domain.AggregationResult{
		Summaries: map[string]*domain.SummaryTable{},
	})
	require.NoError(t, err)
	defer f.Close()

	// Only the excluded sheet remains; no client sheets exist.
	assert.Equal(t, []string{ExcludedSheetName}, f.GetSheetList())
}

func TestSheetNamer(t *testing.T) {
	n := newSheetNamer()

	assert.Equal(t, "ClientA", n.name("ClientA"))
	assert.Equal(t, "ClientA~2", n.name("ClientA"))

	long := strings.Repeat("あ", 40)
	got := n.name(long)
	assert.Len(t, []rune(got), maxSheetNameRunes)

	assert.Equal(t, "A_B_C", n.name("A/B:C"))
	assert.Equal(t, "Sheet", n.name("   "))
}

func TestRecordCells(t *testing.T) {
	battery := 87.5
	rec := &domain.ExchangeRecord{
		Client:       "ClientA",
		User:         "yamada",
		Manufacturer: "Panasonic",
		Battery:      &battery,
		Vehicle:      "V-1",
		ExchangedAt:  time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
		TimeValid:    true,
		SourceEntity: "EntityA",
		SourceGroup:  "GroupB",
	}

	cells := recordCells(rec)
	assert.Equal(t, []string{
		"ClientA", "yamada", "Panasonic", "87.5", "V-1",
		"2025-07-01 09:30:00", "EntityA", "GroupB",
	}, cells)

	rec.Battery = nil
	rec.TimeValid = false
	cells = recordCells(rec)
	assert.Empty(t, cells[3])
	assert.Empty(t, cells[5])
}
