// Package http exposes the attendance dashboard API over chi.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendash/internal/analytics"
	"attendash/internal/config"
	"attendash/internal/errors"
	"attendash/internal/security"
	"attendash/internal/services"
	"attendash/internal/websocket"
	"attendash/pkg/contracts"
)

// Handler carries the API dependencies.
type Handler struct {
	svc      *services.AttendanceService
	logger   *slog.Logger
	errs     *errors.ErrorHandler
	hub      *websocket.Hub
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates the API handler. Hub may be nil to disable the push
// channel endpoint.
func NewHandler(svc *services.AttendanceService, cfg *config.Config, hub *websocket.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:      svc,
		logger:   logger.With(slog.String("component", "http_handler")),
		errs:     errors.NewErrorHandler(logger, false),
		hub:      hub,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// Routes assembles the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.NotFound(h.errs.NotFound)
	r.MethodNotAllowed(h.errs.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.handleUpload)
		r.Get("/records", h.handleRecords)
		r.Get("/aggregates", h.handleAggregates)
		r.Get("/export", h.handleExport)
		r.Get("/notices", h.handleNotices)
		r.Get("/ingest/result", h.handleIngestResult)
		r.Put("/duplicates/mode", h.handleSetMode)
		r.Post("/reset", h.handleReset)
	})

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if h.hub != nil {
		r.Get("/ws", h.handleWebSocket)
	}

	return r
}

// handleUpload ingests a CSV or XLSX file from a multipart form. With
// ?async=true the upload runs in the background and a job ID is returned.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(security.MaxFileBytes + 1024); err != nil {
		h.errs.HandleError(w, r, errors.NewFormatError("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errs.HandleError(w, r, errors.NewValidationError("missing file field in upload"))
		return
	}
	defer file.Close()

	if header.Size > security.MaxFileBytes {
		h.errs.HandleError(w, r, security.CheckFileSize(header.Size))
		return
	}

	if r.URL.Query().Get("async") == "true" {
		jobID := h.svc.StartIngest(r.Context(), header.Filename, file)
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]string{"job_id": jobID})
		return
	}

	notices, err := h.svc.IngestUpload(r.Context(), header.Filename, file)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, notices)
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.svc.Records(filterFromQuery(r)))
}

func (h *Handler) handleAggregates(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.svc.Aggregates(filterFromQuery(r)))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance-export.csv"`)
	if err := h.svc.ExportCSV(w, filterFromQuery(r)); err != nil {
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("error", err.Error()))
	}
}

func (h *Handler) handleNotices(w http.ResponseWriter, r *http.Request) {
	notices, snap := h.svc.Notices()
	render.JSON(w, r, map[string]interface{}{
		"notices":  notices,
		"state":    snap.State,
		"revision": snap.Revision,
		"rows":     len(snap.Records),
		"error":    snap.LastErr,
	})
}

func (h *Handler) handleIngestResult(w http.ResponseWriter, r *http.Request) {
	result := h.svc.LastIngestResult()
	if result == nil {
		render.NoContent(w, r)
		return
	}
	render.JSON(w, r, result)
}

// setModeRequest is the duplicate resolution mode change payload.
type setModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=sum latest first"`
}

func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errs.HandleError(w, r, errors.NewValidationError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errs.HandleError(w, r, errors.NewValidationError(
			"mode must be one of sum, latest or first"))
		return
	}

	notices, err := h.svc.SetResolutionMode(r.Context(), req.Mode)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, notices)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.svc.Reset()
	render.NoContent(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot()
	render.JSON(w, r, map[string]interface{}{
		"status":   "ok",
		"version":  contracts.Version,
		"state":    snap.State,
		"revision": snap.Revision,
		"rows":     len(snap.Records),
	})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.hub, h.cfg.WebSocket, h.cfg.Security.AllowedOrigins, w, r)
}

// filterFromQuery maps query parameters onto a filter state. A missing
// parameter or the literal value "All" selects everything in that dimension.
func filterFromQuery(r *http.Request) analytics.FilterState {
	q := r.URL.Query()
	return analytics.FilterState{
		Years:       selectionFromParams(q["years"]),
		Sites:       selectionFromParams(q["sites"]),
		Services:    selectionFromParams(q["services"]),
		IncludeZero: q.Get("include_zero") == "true",
		Search:      q.Get("q"),
	}
}

// selectionFromParams builds a selection from the query values of one
// dimension. A single value is split on commas; repeating the parameter
// keeps each value verbatim, so names containing commas stay selectable.
// A selection that ends up with no usable values falls back to everything.
func selectionFromParams(values []string) analytics.Selection {
	var parts []string
	switch len(values) {
	case 0:
		return analytics.SelectAll()
	case 1:
		parts = strings.Split(values[0], ",")
	default:
		parts = values
	}

	for _, p := range parts {
		if strings.EqualFold(strings.TrimSpace(p), "All") {
			return analytics.SelectAll()
		}
	}

	sel := analytics.SelectValues(parts...)
	if len(sel.Values) == 0 {
		return analytics.SelectAll()
	}
	return sel
}
