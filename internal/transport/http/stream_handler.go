package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	apierrors "econdash/internal/errors"
	"econdash/internal/infrastructure"
	"econdash/internal/middleware"
	"econdash/internal/services"
	"econdash/internal/view"
	"econdash/internal/websocket"
)

// StreamHandler upgrades clients to websocket view streams
type StreamHandler struct {
	service      ViewServiceInterface
	upgrader     *gorillaws.Upgrader
	query        *middleware.QueryValidator
	metrics      *infrastructure.BusinessMetrics
	writeWait    time.Duration
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStreamHandler creates a stream handler. metrics may be nil.
func NewStreamHandler(service ViewServiceInterface, upgrader *gorillaws.Upgrader, query *middleware.QueryValidator, metrics *infrastructure.BusinessMetrics, writeWait time.Duration, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StreamHandler {
	return &StreamHandler{
		service:      service,
		upgrader:     upgrader,
		query:        query,
		metrics:      metrics,
		writeWait:    writeWait,
		logger:       infrastructure.WithComponent(logger, "stream_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the stream routes
func (h *StreamHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/views/{view}", h.StreamView)
	return r
}

// StreamView handles GET /ws/views/{view}. After the upgrade every render
// model transition of the view is sent as a services.StreamMessage; a
// {"type":"refresh"} command starts a new cycle.
func (h *StreamHandler) StreamView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	if _, err := view.Lookup(name); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("view "+name))
		return
	}
	params, err := h.query.ParseViewQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	sess := websocket.NewSession(websocket.Wrap(conn), h.logger,
		websocket.WithMetrics(h.metrics),
		websocket.WithWriteWait(h.writeWait))

	run := func(ctx context.Context, cmd websocket.Command, send func(any) error) error {
		if overridden(cmd) {
			p, err := h.query.ParseValues(commandValues(params, cmd))
			if err != nil {
				return send(websocket.ErrorMessage{Type: "error", Error: err.Error()})
			}
			params = p
		}

		var sendErr error
		err := h.service.Stream(ctx, name, params, func(m services.StreamMessage) {
			if sendErr == nil {
				sendErr = send(m)
			}
		})
		if err != nil {
			return err
		}
		return sendErr
	}

	if err := sess.Serve(r.Context(), run); err != nil {
		h.logger.WarnContext(r.Context(), "view stream ended with error",
			slog.String("view", name),
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()))
	}
}

func overridden(cmd websocket.Command) bool {
	return cmd.Range != "" || cmd.Combined != nil || cmd.Year != ""
}

// commandValues merges a refresh command over the current params.
func commandValues(p view.Params, cmd websocket.Command) url.Values {
	q := url.Values{}
	q.Set("range", p.RangeLabel())
	q.Set("combined", strconv.FormatBool(p.Combined))
	q.Set("year", p.Year)
	if cmd.Range != "" {
		q.Set("range", cmd.Range)
	}
	if cmd.Combined != nil {
		q.Set("combined", strconv.FormatBool(*cmd.Combined))
	}
	if cmd.Year != "" {
		q.Set("year", cmd.Year)
	}
	return q
}
