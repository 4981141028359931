package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "swapsum/internal/errors"
	"swapsum/internal/services"
)

// uploadField is the multipart form field carrying the workbook.
const uploadField = "file"

// ReportHandler handles report generation and download requests
type ReportHandler struct {
	service        *services.ReportService
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *services.ReportService, maxUploadBytes int64, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service:        service,
		logger:         logger.With(slog.String("handler", "report")),
		errorHandler:   apierrors.NewErrorHandler(logger, false),
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Post("/", h.Generate)
		r.Get("/workbook", h.DownloadWorkbook)
		r.Get("/runs", h.ListRuns)
	})
}

// Generate handles POST /api/reports: parses the uploaded workbook, runs
// the pipeline, and responds with the run summary.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest,
			"MISSING_FILE",
			fmt.Sprintf("Upload the workbook in the %q form field", uploadField),
		))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMedia)
		return
	}

	h.logger.InfoContext(ctx, "report upload received",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	summary, err := h.service.GenerateFromReader(ctx, file, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// File system paths stay server-side; clients fetch via the download
	// endpoint.
	summary.WorkbookPath = ""
	summary.CSVPaths = nil
	summary.Result = nil

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// DownloadWorkbook handles GET /api/reports/workbook: streams the latest
// generated summary workbook.
func (h *ReportHandler) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path, err := h.service.WorkbookPath(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// ListRuns handles GET /api/reports/runs: returns the stored run history.
func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
