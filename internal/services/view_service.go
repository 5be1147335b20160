package services

import (
	"context"
	"log/slog"
	"sort"

	"econdash/internal/fetcher"
	"econdash/internal/infrastructure"
	"econdash/internal/view"
)

// Stream message types
const (
	MessageSeries = "series"
	MessageView   = "view"
)

// StreamMessage is one render-model transition sent to stream clients
type StreamMessage struct {
	Type   string     `json:"type"`
	View   string     `json:"view"`
	Metric string     `json:"metric,omitempty"`
	State  view.State `json:"state"`
}

// ViewService builds dashboard views from concurrently fetched series
type ViewService struct {
	fetcher *fetcher.Fetcher
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewViewService creates a view service
func NewViewService(f *fetcher.Fetcher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ViewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewService{
		fetcher: f,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "view")),
	}
}

// Definitions lists the available views
func (s *ViewService) Definitions() []view.Definition {
	return view.Definitions()
}

// Build fetches every series of the view and builds its page. Series
// failures degrade the page; only an unknown view is an error.
func (s *ViewService) Build(ctx context.Context, name string, p view.Params) (view.Page, error) {
	def, err := view.Lookup(name)
	if err != nil {
		return view.Page{}, err
	}

	results := s.fetcher.FetchAll(ctx, def.Metrics)
	return s.finish(ctx, def, results, p), nil
}

// Stream is Build with every state transition sent to emit: a loading
// state per series, each series outcome as it completes, then the page.
// emit is never called concurrently.
func (s *ViewService) Stream(ctx context.Context, name string, p view.Params, emit func(StreamMessage)) error {
	def, err := view.Lookup(name)
	if err != nil {
		return err
	}

	for _, m := range def.Metrics {
		emit(StreamMessage{Type: MessageSeries, View: name, Metric: m, State: view.Reduce(view.Initial(), view.Started{})})
	}
	emit(StreamMessage{Type: MessageView, View: name, State: view.Reduce(view.Initial(), view.Started{})})

	results := make(map[string]fetcher.Result, len(def.Metrics))
	s.fetcher.FetchEach(ctx, def.Metrics, func(r fetcher.Result) {
		results[r.Endpoint] = r
		emit(StreamMessage{Type: MessageSeries, View: name, Metric: r.Endpoint, State: view.SeriesState(r)})
	})

	page := s.finish(ctx, def, results, p)
	emit(StreamMessage{Type: MessageView, View: name, State: view.Reduce(view.Initial(), view.Completed{Data: page})})
	return nil
}

func (s *ViewService) finish(ctx context.Context, def view.Definition, results map[string]fetcher.Result, p view.Params) view.Page {
	page := def.Build(view.Inputs(results), p)
	infrastructure.RecordViewBuild(ctx, s.metrics, def.Name, page.Degraded)

	if page.Degraded {
		failed := make([]string, 0, len(def.Metrics))
		for m, st := range page.Series {
			if st.Status != view.StatusReady {
				failed = append(failed, m)
			}
		}
		sort.Strings(failed)
		s.logger.WarnContext(ctx, "view built with unavailable series",
			slog.String("view", def.Name),
			slog.Any("unavailable", failed))
	}
	return page
}
