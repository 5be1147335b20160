package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "econdash/internal/errors"
	"econdash/internal/services"
)

// RelayHandler serves upstream payloads by metric name
type RelayHandler struct {
	service      RelayServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRelayHandler creates a relay handler
func NewRelayHandler(service RelayServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RelayHandler {
	return &RelayHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "relay_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the relay routes. Static paths mounted beside it, such
// as /views, take precedence over {metric}.
func (h *RelayHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/catalog", h.GetCatalog)
	r.Get("/{metric}", h.Relay)
	return r
}

// Relay handles GET /api/{metric}
func (h *RelayHandler) Relay(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")

	body, err := h.service.Relay(r.Context(), metric)
	if errors.Is(err, services.ErrUnknownMetric) {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound, "UNKNOWN_METRIC", fmt.Sprintf("unknown metric %q", metric), metric))
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "relay failed",
			slog.String("metric", metric),
			slog.String("error", err.Error()))
		apierrors.WriteRelayError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.DebugContext(r.Context(), "client went away", slog.String("error", err.Error()))
	}
}

// GetCatalog handles GET /api/catalog
func (h *RelayHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Catalog(),
	})
}
