package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"econdash/internal/catalog"
	"econdash/internal/config"
	apierrors "econdash/internal/errors"
	"econdash/internal/exporter"
	"econdash/internal/fetcher"
	"econdash/internal/middleware"
	"econdash/internal/services"
	"econdash/internal/shared/testutil"
	"econdash/internal/view"
	"econdash/internal/websocket"
)

// MockRelayService is a mock for RelayServiceInterface
type MockRelayService struct {
	mock.Mock
}

func (m *MockRelayService) Relay(ctx context.Context, metric string) ([]byte, error) {
	args := m.Called(ctx, metric)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func (m *MockRelayService) Catalog() []catalog.Source {
	args := m.Called()
	return args.Get(0).([]catalog.Source)
}

// MockHealthService is a mock for HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func newErrorHandler(t *testing.T) *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(testutil.Logger(t), false)
}

func TestRelayHandler(t *testing.T) {
	payload := testutil.Payload(testutil.Obs("2020", "10000"))

	tests := []struct {
		name       string
		metric     string
		body       []byte
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "verbatim payload",
			metric:     catalog.MetricGDP,
			body:       payload,
			wantStatus: http.StatusOK,
			wantBody:   string(payload),
		},
		{
			name:       "upstream failure",
			metric:     catalog.MetricInflation,
			err:        apierrors.NewUpstreamError("status 500", nil),
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"Failed to fetch data"}` + "\n",
		},
		{
			name:       "unknown metric",
			metric:     "population",
			err:        fmt.Errorf("%w: population", services.ErrUnknownMetric),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRelayService)
			svc.On("Relay", mock.Anything, tt.metric).Return(tt.body, tt.err).Once()

			h := NewRelayHandler(svc, testutil.Logger(t), newErrorHandler(t))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+tt.metric, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
			if tt.wantStatus == http.StatusNotFound {
				var problem map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, "UNKNOWN_METRIC", problem["error_code"])
				assert.EqualValues(t, http.StatusNotFound, problem["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRelayHandlerCatalog(t *testing.T) {
	svc := new(MockRelayService)
	svc.On("Catalog").Return(catalog.Default().Sources())

	h := NewRelayHandler(svc, testutil.Logger(t), newErrorHandler(t))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string           `json:"status"`
		Data   []catalog.Source `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Data, 5)
	svc.AssertNotCalled(t, "Relay", mock.Anything, mock.Anything)
}

// seriesSource serves canned payloads per metric; others fail.
func seriesSource(payloads map[string][]byte) fetcher.Source {
	return fetcher.SourceFunc(func(ctx context.Context, metric string) ([]byte, error) {
		if body, ok := payloads[metric]; ok {
			return body, nil
		}
		return nil, errors.New("relay returned status 502")
	})
}

func newViewService(t *testing.T, payloads map[string][]byte) *services.ViewService {
	logger := testutil.Logger(t)
	return services.NewViewService(fetcher.New(seriesSource(payloads), logger), nil, logger)
}

func gdpPayloads() map[string][]byte {
	return map[string][]byte{
		catalog.MetricGDP: testutil.Payload(
			testutil.Obs("2020", "10000"),
			testutil.Obs("2019", "9000"),
			testutil.Obs("2021", nil),
		),
	}
}

func newViewRouter(t *testing.T, payloads map[string][]byte) chi.Router {
	logger := testutil.Logger(t)
	h := NewViewHandler(newViewService(t, payloads), exporter.New(t.TempDir(), logger),
		middleware.NewQueryValidator(logger), logger, newErrorHandler(t))
	return h.Routes()
}

func TestViewHandlerList(t *testing.T) {
	rec := httptest.NewRecorder()
	newViewRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []viewSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	names := make([]string, 0, len(resp.Data))
	for _, v := range resp.Data {
		names = append(names, v.Name)
	}
	assert.Equal(t, view.Names(), names)
}

func TestViewHandlerGetView(t *testing.T) {
	rec := httptest.NewRecorder()
	newViewRouter(t, gdpPayloads()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gdp?combined=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Status string `json:"status"`
		Data   struct {
			View     string `json:"view"`
			Combined bool   `json:"combined"`
			Degraded bool   `json:"degraded"`
			Series   map[string]struct {
				Status string `json:"status"`
			} `json:"series"`
			Table view.Table `json:"table"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))

	assert.Equal(t, "ready", state.Status)
	assert.Equal(t, "gdp", state.Data.View)
	assert.True(t, state.Data.Combined)
	assert.False(t, state.Data.Degraded)
	assert.Equal(t, "ready", state.Data.Series[catalog.MetricGDP].Status)
	assert.Equal(t, []string{"Year", "GDPperCapita", "GrowthRate"}, state.Data.Table.Columns)
	require.Len(t, state.Data.Table.Rows, 2)
	assert.Equal(t, "2019", state.Data.Table.Rows[0].Label)
}

func TestViewHandlerDegradedView(t *testing.T) {
	// credit-card fails; the view still renders with a failed series
	rec := httptest.NewRecorder()
	newViewRouter(t, gdpPayloads()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credit-card", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Data struct {
			Degraded bool `json:"degraded"`
			Series   map[string]struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"series"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Data.Degraded)
	assert.Equal(t, "failed", state.Data.Series[catalog.MetricCreditCard].Status)
	assert.Contains(t, state.Data.Series[catalog.MetricCreditCard].Error, "credit-card")
	assert.Equal(t, "ready", state.Data.Series[catalog.MetricGDP].Status)
}

func TestViewHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "unknown view", path: "/population", wantStatus: http.StatusNotFound},
		{name: "unknown view export", path: "/population/export.csv", wantStatus: http.StatusNotFound},
		{name: "bad range", path: "/gdp?range=1990", wantStatus: http.StatusBadRequest},
		{name: "bad format", path: "/gdp/export.pdf", wantStatus: http.StatusBadRequest},
	}

	router := newViewRouter(t, gdpPayloads())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestViewHandlerExport(t *testing.T) {
	router := newViewRouter(t, gdpPayloads())

	t.Run("csv", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gdp/export.csv", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="gdp_data.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "Year,GDPperCapita\n2019,9000\n2020,10000\n", rec.Body.String())
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gdp/export.XLSX", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, exporter.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
		// xlsx files are zip archives
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
	})
}

type failingWriter struct{}

func (failingWriter) Write(io.Writer, view.Table, exporter.Format) error {
	return errors.New("disk full")
}

func TestViewHandlerExportFailure(t *testing.T) {
	logger := testutil.Logger(t)
	router := NewViewHandler(newViewService(t, gdpPayloads()), failingWriter{},
		middleware.NewQueryValidator(logger), logger, newErrorHandler(t)).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gdp/export.csv", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "EXPORT_FAILED")
}

func TestHealthHandler(t *testing.T) {
	svc := new(MockHealthService)
	svc.On("HealthCheck", mock.Anything).Return(services.HealthStatus{Status: "ok"})
	svc.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{Status: "not_ready"})
	svc.On("LivenessCheck", mock.Anything).Return(services.HealthStatus{Status: "alive"})
	svc.On("Version").Return(map[string]interface{}{"version": "test"})

	router := NewHealthHandler(svc, testutil.Logger(t)).Routes()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{path: "/health/ready", wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"not_ready"`},
		{path: "/health/live", wantStatus: http.StatusOK, wantBody: `"status":"alive"`},
		{path: "/version", wantStatus: http.StatusOK, wantBody: `"version":"test"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
	svc.AssertExpectations(t)
}

func newStreamServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	logger := testutil.Logger(t)
	h := NewStreamHandler(newViewService(t, payloads),
		websocket.NewUpgrader(config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}, []string{"*"}),
		middleware.NewQueryValidator(logger), nil, time.Second, logger, newErrorHandler(t))
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func readUntilView(t *testing.T, conn *gorillaws.Conn) []services.StreamMessage {
	t.Helper()
	var msgs []services.StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var m services.StreamMessage
		require.NoError(t, conn.ReadJSON(&m))
		msgs = append(msgs, m)
		if m.Type == services.MessageView && m.State.Done() {
			return msgs
		}
	}
}

func TestStreamHandler(t *testing.T) {
	srv := newStreamServer(t, gdpPayloads())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/views/credit-card"

	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	msgs := readUntilView(t, conn)

	// loading per series, loading view, one outcome per series, final view
	require.Len(t, msgs, 6)
	for _, m := range msgs[:3] {
		assert.Equal(t, view.StatusLoading, m.State.Status)
	}
	outcomes := map[string]view.Status{}
	for _, m := range msgs[3:5] {
		assert.Equal(t, services.MessageSeries, m.Type)
		outcomes[m.Metric] = m.State.Status
	}
	assert.Equal(t, map[string]view.Status{
		catalog.MetricCreditCard: view.StatusFailed,
		catalog.MetricGDP:        view.StatusReady,
	}, outcomes)
	assert.Equal(t, view.StatusReady, msgs[5].State.Status)

	// a refresh starts a second cycle with the new options
	require.NoError(t, conn.WriteJSON(websocket.Command{Type: websocket.CommandRefresh, Range: "2011-2023"}))
	again := readUntilView(t, conn)
	require.Len(t, again, 6)

	page, ok := again[5].State.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2011-2023", page["range"])
}

func TestStreamHandlerRejectsBeforeUpgrade(t *testing.T) {
	srv := newStreamServer(t, nil)
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := gorillaws.DefaultDialer.Dial(base+"/views/population", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = gorillaws.DefaultDialer.Dial(base+"/views/gdp?combined=maybe", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
