package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"econdash/internal/config"
	"econdash/internal/infrastructure"
	"econdash/internal/series"
)

// Result is the outcome of one endpoint fetch. Exactly one of Records and
// Err is meaningful.
type Result struct {
	Endpoint string
	Records  []series.Record
	Err      error
}

// OK reports whether the fetch produced records.
func (r Result) OK() bool { return r.Err == nil }

// Empty reports whether the endpoint answered with no records.
func (r Result) Empty() bool {
	var empty *EmptyDataError
	return errors.As(r.Err, &empty)
}

// Fetcher resolves endpoint keys to records through a Source
type Fetcher struct {
	source  Source
	limit   int
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithConcurrency bounds FetchAll. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithMetrics attaches business metrics
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// New creates a Fetcher
func New(source Source, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		source: source,
		limit:  config.DefaultFetchConcurrency,
		logger: infrastructure.WithComponent(logger, "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one endpoint. Failures are *FetchError or *EmptyDataError.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) ([]series.Record, error) {
	records, err := f.fetch(ctx, endpoint)
	infrastructure.RecordSeriesFetch(ctx, f.metrics, endpoint, len(records), err)
	if err != nil {
		f.logger.WarnContext(ctx, "series unavailable",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return nil, err
	}
	return records, nil
}

func (f *Fetcher) fetch(ctx context.Context, endpoint string) ([]series.Record, error) {
	body, err := f.source.Fetch(ctx, endpoint)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Cause: err}
	}

	ds, err := series.ParseDataset(body)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Cause: err}
	}
	if ds.Error != "" {
		return nil, &FetchError{Endpoint: endpoint, Cause: errors.New(ds.Error)}
	}
	if len(ds.Value) == 0 {
		return nil, newEmptyDataError(endpoint)
	}
	return ds.Value, nil
}

// FetchAll fetches every endpoint concurrently and returns one Result per
// distinct endpoint. A failed endpoint never affects the others.
func (f *Fetcher) FetchAll(ctx context.Context, endpoints []string) map[string]Result {
	out := make(map[string]Result, len(endpoints))
	var mu sync.Mutex
	f.FetchEach(ctx, endpoints, func(r Result) {
		mu.Lock()
		out[r.Endpoint] = r
		mu.Unlock()
	})
	return out
}

// FetchEach is FetchAll with a callback invoked as each endpoint completes.
// Calls to done are serialized. FetchEach returns after every callback.
func (f *Fetcher) FetchEach(ctx context.Context, endpoints []string, done func(Result)) {
	keys := dedupe(endpoints)
	results := make([]Result, len(keys))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(f.limit)
	for i, key := range keys {
		g.Go(func() error {
			records, err := f.Fetch(ctx, key)
			results[i] = Result{Endpoint: key, Records: records, Err: err}
			if done != nil {
				mu.Lock()
				done(results[i])
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
