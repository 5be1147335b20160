package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econdash/internal/infrastructure"
	"econdash/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "wrapped cancellation",
			err:        fmt.Errorf("fetch gdp: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "api error",
			err:        ErrValidation("range", "bad range"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "unknown metric api error",
			err:        New(http.StatusNotFound, "UNKNOWN_METRIC", "unknown metric: gnp"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeUnknownMetric,
			wantTitle:  "Not Found",
		},
		{
			name:       "upstream app error",
			err:        NewUpstreamError("data360 returned 500", nil),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeUpstream,
			wantTitle:  "Upstream Unavailable",
		},
		{
			name:       "network app error wrapped",
			err:        fmt.Errorf("relay: %w", NewNetworkError("dial tcp", fmt.Errorf("refused"))),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeUpstream,
			wantTitle:  "Upstream Unavailable",
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("decode body", nil),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeUpstreamData,
			wantTitle:  "Malformed Upstream Response",
		},
		{
			name:       "empty data",
			err:        NewEmptyDataError("no observations for inflation"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDataNotFound,
			wantTitle:  "No Data",
		},
		{
			name:       "not found",
			err:        NewNotFoundError("view"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Resource Not Found",
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/gdp", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-1"))
			w := httptest.NewRecorder()

			handler.HandleError(w, req, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, tt.wantTitle, body["title"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/gdp", body["instance"])
			assert.Equal(t, "trace-1", body["trace_id"])
			assert.NotContains(t, body, "stack")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestErrorHandler_StackInDevelopment(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "stack")
}

func TestAppErrorContextBecomesExtension(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	err := NewUpstreamError("fetch failed", nil).WithContext("metric", "inflation")
	problem := handler.ErrorToProblem(err, httptest.NewRequest(http.MethodGet, "/api/inflation", nil))

	assert.Equal(t, "inflation", problem.Extensions["metric"])
	assert.Equal(t, "UPSTREAM", problem.Extensions["error_type"])
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(handler)(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/views/gdp", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "route /nope not found", body["detail"])
	assert.Equal(t, string(ErrTypeNotFound), body["error_type"])
	assert.Equal(t, http.MethodGet, body["method"])

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/gdp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}
