package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"swapsum/internal/config"
	apierrors "swapsum/internal/errors"
	"swapsum/internal/warehouse"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.ReportsDir = filepath.Join(dir, "reports")
	cfg.Pipeline.EligibleClients = []string{"ClientA"}
	cfg.Pipeline.SelfExchange = map[string]string{"EntityA": "ClientA"}
	return cfg
}

func testService(t *testing.T, cfg *config.Config, wh *warehouse.Warehouse) *ReportService {
	t.Helper()
	return NewReportService(cfg, wh, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// buildWorkbook produces an upload-shaped workbook: header row with the
// default columns, then the given data rows.
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	header := []interface{}{
		"user_company(所属)", "user_name", "自転車メーカー名", "battery_remaining",
		"車両番号", "交換日時", "交換元組織", "交換元部署",
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestGenerateFromReader(t *testing.T) {
	cfg := testConfig(t)
	svc := testService(t, cfg, nil)

	data := buildWorkbook(t, [][]interface{}{
		{"ClientA", "yamada", "Panasonic", "30", "V-1", "2025-07-01 09:00:00", "", ""},
		{"ClientA", "yamada", "Panasonic", "10", "V-1", "2025-07-01 09:30:00", "", ""},
		{"ClientB", "suzuki", "YAMAHA", "80", "V-2", "2025-07-01 10:00:00", "", ""},
		{"ClientA", "staff", "Panasonic", "40", "V-3", "2025-07-01 11:00:00", "EntityA", ""},
	})

	summary, err := svc.GenerateFromReader(context.Background(), bytes.NewReader(data), "upload.xlsx")
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "upload.xlsx", summary.Source)
	assert.Equal(t, 4, summary.RecordCount)
	assert.Equal(t, []string{"ClientA", "ClientB"}, summary.Clients)
	assert.Equal(t, 1, summary.DuplicateCount)
	assert.Equal(t, 1, summary.SelfExchangeCount)
	assert.FileExists(t, summary.WorkbookPath)
	assert.NotEmpty(t, summary.CSVPaths)
}

func TestGenerateFromReader_ExcludedKeepsExtraColumns(t *testing.T) {
	cfg := testConfig(t)
	svc := testService(t, cfg, nil)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{
		"user_company(所属)", "user_name", "自転車メーカー名", "battery_remaining",
		"車両番号", "交換日時", "交換元組織", "交換元部署", "memo",
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row := []interface{}{"ClientA", "staff", "Panasonic", "40", "V-1", "2025-07-01 11:00:00", "EntityA", "", "important-note"}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	summary, err := svc.GenerateFromReader(context.Background(), &buf, "upload.xlsx")
	require.NoError(t, err)
	require.Equal(t, 1, summary.SelfExchangeCount)

	// The unmapped memo column survives into the excluded-records CSV.
	data, err := os.ReadFile(filepath.Join(cfg.Paths.ReportsDir, "excluded_records.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "memo")
	assert.Contains(t, string(data), "important-note")
}

func TestGenerateFromReader_SchemaMismatch(t *testing.T) {
	cfg := testConfig(t)
	svc := testService(t, cfg, nil)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{"completely", "different", "columns"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row := []interface{}{"a", "b", "c"}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	_, err := svc.GenerateFromReader(context.Background(), &buf, "bad.xlsx")
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SCHEMA_MISMATCH", apiErr.ErrorCode)
}

func TestGenerateFromReader_EmptyWorkbookRows(t *testing.T) {
	cfg := testConfig(t)
	svc := testService(t, cfg, nil)

	data := buildWorkbook(t, nil)
	_, err := svc.GenerateFromReader(context.Background(), bytes.NewReader(data), "empty.xlsx")
	assert.ErrorIs(t, err, apierrors.ErrNoRecords)
}

func TestGenerateFromReader_NotAWorkbook(t *testing.T) {
	cfg := testConfig(t)
	svc := testService(t, cfg, nil)

	_, err := svc.GenerateFromReader(context.Background(), bytes.NewReader([]byte("plain text")), "junk.xlsx")
	assert.Error(t, err)
}

func TestGenerate_StoresRunInWarehouse(t *testing.T) {
	cfg := testConfig(t)
	cfg.Warehouse.Enabled = true
	cfg.Warehouse.Path = filepath.Join(cfg.Paths.DataDir, "warehouse.db")

	wh, err := warehouse.Open(cfg.Warehouse, nil)
	require.NoError(t, err)
	defer wh.Close()

	svc := testService(t, cfg, wh)

	data := buildWorkbook(t, [][]interface{}{
		{"ClientA", "yamada", "Panasonic", "30", "V-1", "2025-07-01 09:00:00", "", ""},
	})

	summary, err := svc.GenerateFromReader(context.Background(), bytes.NewReader(data), "upload.xlsx")
	require.NoError(t, err)

	runs, err := svc.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
}

func TestWorkbookPath(t *testing.T) {
	cfg := testConfig(t)
	svc := testService(t, cfg, nil)

	_, err := svc.WorkbookPath(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrReportNotFound)

	data := buildWorkbook(t, [][]interface{}{
		{"ClientA", "yamada", "Panasonic", "30", "V-1", "2025-07-01 09:00:00", "", ""},
	})
	_, err = svc.GenerateFromReader(context.Background(), bytes.NewReader(data), "upload.xlsx")
	require.NoError(t, err)

	path, err := svc.WorkbookPath(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestListRuns_NoWarehouse(t *testing.T) {
	svc := testService(t, testConfig(t), nil)

	runs, err := svc.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
