package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "econdash/internal/errors"
	"econdash/internal/exporter"
	"econdash/internal/middleware"
	"econdash/internal/view"
)

// TableWriter renders a view table in an export format
type TableWriter interface {
	Write(out io.Writer, t view.Table, f exporter.Format) error
}

// ViewHandler serves built views and their exports
type ViewHandler struct {
	service      ViewServiceInterface
	exports      TableWriter
	query        *middleware.QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewViewHandler creates a view handler
func NewViewHandler(service ViewServiceInterface, exports TableWriter, query *middleware.QueryValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ViewHandler {
	return &ViewHandler{
		service:      service,
		exports:      exports,
		query:        query,
		logger:       logger.With(slog.String("component", "view_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the view routes
func (h *ViewHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListViews)
	r.Route("/{view}", func(r chi.Router) {
		r.Use(h.ViewCtx)
		r.Get("/", h.GetView)
		r.Get("/export.{format}", h.ExportView)
	})
	return r
}

// ViewCtx rejects unknown view names before any fetch starts
func (h *ViewHandler) ViewCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "view")
		if _, err := view.Lookup(name); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError("view "+name))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type viewSummary struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Metrics []string `json:"metrics"`
}

// ListViews handles GET /api/views
func (h *ViewHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	defs := h.service.Definitions()
	out := make([]viewSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, viewSummary{Name: d.Name, Title: d.Title, Metrics: d.Metrics})
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   out,
	})
}

// GetView handles GET /api/views/{view}. The body is the view's render
// model; a degraded page is still 200 with per-series states.
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	page, ok := h.build(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, view.Reduce(view.Initial(), view.Completed{Data: page}))
}

// ExportView handles GET /api/views/{view}/export.{format}
func (h *ViewHandler) ExportView(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	page, ok := h.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exports.Write(&buf, page.Table, format); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ExportError(string(format), err))
		return
	}

	filename := exporter.Filename(page.Table, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.DebugContext(r.Context(), "client went away", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("view", page.View),
		slog.String("file", filename),
		slog.Int("rows", len(page.Table.Rows)),
		slog.Bool("degraded", page.Degraded))
}

func (h *ViewHandler) build(w http.ResponseWriter, r *http.Request) (view.Page, bool) {
	params, err := h.query.ParseViewQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return view.Page{}, false
	}

	page, err := h.service.Build(r.Context(), chi.URLParam(r, "view"), params)
	if err != nil {
		if errors.Is(err, view.ErrUnknownView) {
			err = apierrors.NotFoundError("view " + chi.URLParam(r, "view"))
		}
		h.errorHandler.HandleError(w, r, err)
		return view.Page{}, false
	}
	return page, true
}
