package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source returns the relay body for a metric.
type Source interface {
	Fetch(ctx context.Context, metric string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, metric string) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, metric string) ([]byte, error) {
	return f(ctx, metric)
}

const maxRelayBody = 32 << 20

// HTTPSource reads {base}/api/{metric} from a running relay.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for the relay at baseURL. A nil client gets
// a 30s timeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, metric string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/api/"+url.PathEscape(metric), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var relayErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &relayErr) == nil {
			if msg := firstNonEmpty(relayErr.Error, relayErr.Detail); msg != "" {
				return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
