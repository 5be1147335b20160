package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "econdash/internal/errors"
	"econdash/internal/series"
	"econdash/internal/shared/testutil"
)

// mapSource serves canned bodies; missing metrics fail.
type mapSource struct {
	bodies map[string][]byte
	delay  map[string]time.Duration
	calls  atomic.Int32
}

func (m *mapSource) Fetch(ctx context.Context, metric string) ([]byte, error) {
	m.calls.Add(1)
	if d := m.delay[metric]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	body, ok := m.bodies[metric]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return body, nil
}

func TestFetch(t *testing.T) {
	src := &mapSource{bodies: map[string][]byte{
		"gdp":       testutil.Payload(testutil.Obs("2019", "420"), testutil.Obs("2020", "440")),
		"empty":     []byte(`{"count":0,"value":[]}`),
		"relay-err": []byte(`{"error":"Failed to fetch data"}`),
		"garbage":   []byte(`not json`),
	}}
	f := New(src, testutil.Logger(t))

	tests := []struct {
		name      string
		endpoint  string
		wantLen   int
		wantFetch bool
		wantEmpty bool
	}{
		{name: "records", endpoint: "gdp", wantLen: 2},
		{name: "empty value", endpoint: "empty", wantEmpty: true},
		{name: "relay error body", endpoint: "relay-err", wantFetch: true},
		{name: "decode failure", endpoint: "garbage", wantFetch: true},
		{name: "network failure", endpoint: "missing", wantFetch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := f.Fetch(context.Background(), tt.endpoint)

			var fetchErr *FetchError
			var emptyErr *EmptyDataError
			switch {
			case tt.wantFetch:
				require.ErrorAs(t, err, &fetchErr)
				assert.Equal(t, tt.endpoint, fetchErr.Endpoint)
				assert.NotNil(t, fetchErr.Cause)
				assert.Nil(t, records)
			case tt.wantEmpty:
				require.ErrorAs(t, err, &emptyErr)
				assert.Equal(t, tt.endpoint, emptyErr.Endpoint)
			default:
				require.NoError(t, err)
				assert.Len(t, records, tt.wantLen)
			}
		})
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	src := SourceFunc(func(ctx context.Context, metric string) ([]byte, error) {
		return nil, context.DeadlineExceeded
	})
	_, err := New(src, testutil.Logger(t)).Fetch(context.Background(), "gdp")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "fetch gdp: context deadline exceeded", err.Error())
}

func TestEmptyDataUnwrapsToAppError(t *testing.T) {
	src := SourceFunc(func(ctx context.Context, metric string) ([]byte, error) {
		return []byte(`{"value":[]}`), nil
	})
	_, err := New(src, testutil.Logger(t)).Fetch(context.Background(), "inflation")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeEmptyData, appErr.Type)
	assert.Equal(t, "no observations for inflation", appErr.Message)
	assert.Equal(t, "inflation", appErr.Context["endpoint"])
	assert.Equal(t, "fetch inflation: no records", err.Error())
}

func TestFetchAllPartialDegradation(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &mapSource{
		bodies: map[string][]byte{
			"gdp":       testutil.Payload(testutil.Obs("2020", 10000)),
			"inflation": testutil.Payload(testutil.Obs("2020", 0.011)),
		},
		delay: map[string]time.Duration{"gdp": 20 * time.Millisecond},
	}
	logger, logs := testutil.NewTestLogger(t)
	f := New(src, logger, WithConcurrency(2))

	results := f.FetchAll(context.Background(), []string{"gdp", "credit-card", "inflation", "gdp"})

	require.Len(t, results, 3)
	assert.True(t, results["gdp"].OK())
	assert.True(t, results["inflation"].OK())
	assert.False(t, results["credit-card"].OK())
	assert.Len(t, results["gdp"].Records, 1)
	assert.EqualValues(t, 3, src.calls.Load())

	assert.True(t, logs.ContainsAttr("endpoint", "credit-card"))
}

func TestFetchEachCallbackPerEndpoint(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &mapSource{bodies: map[string][]byte{
		"a": testutil.Payload(testutil.Obs("2020", 1)),
		"b": []byte(`{"value":[]}`),
	}}
	f := New(src, testutil.Logger(t), WithConcurrency(1))

	var mu sync.Mutex
	seen := map[string]Result{}
	f.FetchEach(context.Background(), []string{"a", "b", "c"}, func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		seen[r.Endpoint] = r
	})

	require.Len(t, seen, 3)
	assert.True(t, seen["a"].OK())
	assert.True(t, seen["b"].Empty())
	assert.False(t, seen["c"].OK())
	assert.False(t, seen["c"].Empty())
}

func TestFetchAllCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &mapSource{
		bodies: map[string][]byte{"gdp": testutil.Payload(testutil.Obs("2020", 1))},
		delay:  map[string]time.Duration{"gdp": time.Minute},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	results := New(src, testutil.Logger(t)).FetchAll(ctx, []string{"gdp"})
	assert.ErrorIs(t, results["gdp"].Err, context.DeadlineExceeded)
}

// Two series, intersect-aligned, from fetch to aligned arrays.
func TestFetchAlignEndToEnd(t *testing.T) {
	src := &mapSource{bodies: map[string][]byte{
		"A": []byte(`{"value":[{"TIME_PERIOD":"2019","OBS_VALUE":"420"},{"TIME_PERIOD":"2020","OBS_VALUE":"440"}]}`),
		"B": []byte(`{"value":[{"TIME_PERIOD":"2020","OBS_VALUE":"5"}]}`),
	}}
	results := New(src, testutil.Logger(t)).FetchAll(context.Background(), []string{"A", "B"})
	require.True(t, results["A"].OK())
	require.True(t, results["B"].OK())

	a := series.Normalize(results["A"].Records, series.FieldTimePeriod, nil)
	b := series.Normalize(results["B"].Records, series.FieldTimePeriod, nil)
	aligned := series.Align(a, b, series.Intersect)

	assert.Equal(t, []string{"2020"}, aligned.Years)
	assert.Equal(t, []float64{440}, aligned.Primary)
	assert.Equal(t, []float64{5}, aligned.SecondaryOr(0))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/gdp":
			w.Write(testutil.Payload(testutil.Obs("2020", 1)))
		case "/api/inflation":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"Failed to fetch data"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", srv.Client())

	body, err := src.Fetch(context.Background(), "gdp")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"TIME_PERIOD":"2020"`)

	_, err = src.Fetch(context.Background(), "inflation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to fetch data")

	_, err = src.Fetch(context.Background(), "nope")
	assert.EqualError(t, err, "relay returned status 404")
}
