package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"swapsum/internal/config"
	"swapsum/internal/services"
)

func testRouter(t *testing.T) (*chi.Mux, *config.Config) {
	t.Helper()

	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.ReportsDir = filepath.Join(dir, "reports")

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := services.NewReportService(cfg, nil, nil, logger)
	handler := NewReportHandler(svc, cfg.Server.MaxUploadBytes, logger)

	r := chi.NewRouter()
	r.Route("/api", handler.RegisterRoutes)
	return r, cfg
}

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
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

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestGenerate_Success(t *testing.T) {
	router, _ := testRouter(t)

	data := workbookBytes(t, [][]interface{}{
		{"ClientA", "yamada", "Panasonic", "30", "V-1", "2025-07-01 09:00:00", "", ""},
		{"ClientB", "suzuki", "YAMAHA", "80", "V-2", "2025-07-01 10:00:00", "", ""},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, uploadField, "upload.xlsx", data))

	require.Equal(t, http.StatusCreated, rec.Code)

	var summary services.ReportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.RecordCount)
	assert.Equal(t, []string{"ClientA", "ClientB"}, summary.Clients)
	assert.Empty(t, summary.WorkbookPath)
}

func TestGenerate_MissingFile(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "wrong_field", "upload.xlsx", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_FILE")
}

func TestGenerate_WrongExtension(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, uploadField, "upload.csv", []byte("a,b,c")))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestGenerate_SchemaMismatch(t *testing.T) {
	router, _ := testRouter(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{"wrong", "columns"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row := []interface{}{"a", "b"}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, uploadField, "bad.xlsx", buf.Bytes()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "schema-mismatch")
}

func TestDownloadWorkbook_NotFound(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/workbook", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadWorkbook_AfterGenerate(t *testing.T) {
	router, _ := testRouter(t)

	data := workbookBytes(t, [][]interface{}{
		{"ClientA", "yamada", "Panasonic", "30", "V-1", "2025-07-01 09:00:00", "", ""},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, uploadField, "upload.xlsx", data))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/workbook", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "exchange_summary.xlsx")
}

func TestListRuns_EmptyWithoutWarehouse(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["count"])
}
