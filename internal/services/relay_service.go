package services

import (
	"context"
	"fmt"
	"log/slog"

	"econdash/internal/catalog"
)

// Upstream fetches the raw payload of a catalog source
type Upstream interface {
	Fetch(ctx context.Context, src catalog.Source) ([]byte, error)
}

// RelayService maps metric names to upstream sources and returns their
// payloads unchanged. It keeps no state between calls.
type RelayService struct {
	catalog  *catalog.Catalog
	upstream Upstream
	logger   *slog.Logger
}

// NewRelayService creates a relay over a validated catalog
func NewRelayService(cat *catalog.Catalog, upstream Upstream, logger *slog.Logger) *RelayService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayService{
		catalog:  cat,
		upstream: upstream,
		logger:   logger.With(slog.String("service", "relay")),
	}
}

// Relay returns the upstream body for metric
func (s *RelayService) Relay(ctx context.Context, metric string) ([]byte, error) {
	src, ok := s.catalog.Lookup(metric)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}

	body, err := s.upstream.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "relayed metric",
		slog.String("metric", metric),
		slog.Int("bytes", len(body)))
	return body, nil
}

// Fetch lets the relay serve as an in-process series source
func (s *RelayService) Fetch(ctx context.Context, metric string) ([]byte, error) {
	return s.Relay(ctx, metric)
}

// Catalog returns the sources the relay serves
func (s *RelayService) Catalog() []catalog.Source {
	return s.catalog.Sources()
}
