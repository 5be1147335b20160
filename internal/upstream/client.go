// Package upstream talks to the World Bank Data360 API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"econdash/internal/catalog"
	"econdash/internal/config"
	apperrors "econdash/internal/errors"
	"econdash/internal/infrastructure"
)

const (
	TracerName = "econdash-upstream"

	// maxBodyBytes caps a single Data360 response.
	maxBodyBytes = 32 << 20
)

// Client fetches raw Data360 payloads for catalog sources
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataPath   string
	region     string
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches business metrics
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Data360 client from upstream configuration
func NewClient(cfg config.UpstreamConfig, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultUpstreamTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dataPath:   "/" + strings.TrimLeft(cfg.DataPath, "/"),
		region:     cfg.RegionCode,
		logger:     infrastructure.WithComponent(logger, "upstream"),
		tracer:     otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL builds the Data360 request URL for a source
func (c *Client) URL(src catalog.Source) string {
	q := url.Values{}
	q.Set("DATABASE_ID", src.Database)
	q.Set("INDICATOR", src.Indicator)
	q.Set("REF_AREA", c.region)
	q.Set("skip", "0")
	return c.baseURL + c.dataPath + "?" + q.Encode()
}

// Fetch returns the upstream JSON body for src unchanged.
// Transport failures, non-2xx statuses and non-JSON bodies are errors.
func (c *Client) Fetch(ctx context.Context, src catalog.Source) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "upstream.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("metric", src.Name),
			attribute.String("data360.database", src.Database),
			attribute.String("data360.indicator", src.Indicator),
		),
	)
	defer span.End()

	start := time.Now()
	body, err := c.do(ctx, src)
	duration := time.Since(start)
	infrastructure.RecordUpstreamMetrics(ctx, c.metrics, src.Name, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WarnContext(ctx, "Data360 request failed",
			slog.String("metric", src.Name),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.bytes", len(body)))
	c.logger.DebugContext(ctx, "Data360 request completed",
		slog.String("metric", src.Name),
		slog.Duration("duration", duration),
		slog.Int("bytes", len(body)))
	return body, nil
}

func (c *Client) do(ctx context.Context, src catalog.Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(src), nil)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to build Data360 request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.AppName+"/"+config.AppVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewNetworkError("failed to reach Data360", err).
			WithContext("metric", src.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("Data360 returned status %d", resp.StatusCode), nil).
			WithContext("metric", src.Name).
			WithContext("upstream_status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read Data360 response", err).
			WithContext("metric", src.Name)
	}
	if len(body) > maxBodyBytes {
		return nil, apperrors.NewUpstreamError("Data360 response too large", nil).
			WithContext("metric", src.Name)
	}
	if !json.Valid(body) {
		return nil, apperrors.NewParsingError("Data360 returned invalid JSON", nil).
			WithContext("metric", src.Name)
	}
	return body, nil
}
