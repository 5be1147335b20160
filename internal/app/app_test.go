package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econdash/internal/config"
	"econdash/internal/shared/testutil"
)

// newTestApp wires an application against a fake Data360 that serves GDP
// and inflation and fails everything else.
func newTestApp(t *testing.T, mutate ...func(*config.Config)) (*Application, *testutil.FakeData360) {
	t.Helper()

	upstream := testutil.NewFakeData360(t)
	upstream.Set("WB_WDI_NY_GDP_PCAP_CD", testutil.Payload(
		testutil.Obs("2019", 11000.5),
		testutil.Obs("2020", 10000.25),
	))
	upstream.Set("WB_WDI_FP_CPI_TOTL_ZG", testutil.Payload(
		testutil.Obs("2020", 0.012),
	))

	cfg := config.Default()
	cfg.Paths.ExecutableDir = t.TempDir()
	cfg.Upstream.BaseURL = upstream.URL
	cfg.Upstream.Timeout = 2 * time.Second
	cfg.Security.RateLimit.Enabled = false
	for _, m := range mutate {
		m(cfg)
	}

	a, err := New(cfg, testutil.Logger(t), nil)
	require.NoError(t, err)
	return a, upstream
}

func serve(a *Application, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew(t *testing.T) {
	a, _ := newTestApp(t)

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Services.Relay)
	assert.NotNil(t, a.Services.Views)
	assert.NotNil(t, a.Services.Health)
	assert.NotNil(t, a.Services.Exporter)
	assert.Nil(t, a.Metrics)
	assert.Equal(t, ":4000", a.Server.Addr)
	assert.DirExists(t, a.Config.GetExportsDir())
}

func TestNewRejectsIncompleteCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`metrics:
  - name: gdp
    database: WB_WDI
    indicator: WB_WDI_NY_GDP_PCAP_CD
    title: GDP
`), 0o644))

	cfg := config.Default()
	cfg.Paths.ExecutableDir = dir
	cfg.Upstream.CatalogFile = path

	_, err := New(cfg, testutil.Logger(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inflation")
}

func TestRelayRoutes(t *testing.T) {
	a, upstream := newTestApp(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "known metric is relayed verbatim",
			target:     "/api/gdp",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Equal(t, string(testutil.Payload(
					testutil.Obs("2019", 11000.5),
					testutil.Obs("2020", 10000.25),
				)), rec.Body.String())
			},
		},
		{
			name:       "upstream failure",
			target:     "/api/credit-card",
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"error":"Failed to fetch data"}`, rec.Body.String())
			},
		},
		{
			name:       "unknown metric",
			target:     "/api/unemployment",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), "UNKNOWN_METRIC")
			},
		},
		{
			name:       "catalog",
			target:     "/api/catalog",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), "WB_FINDEX_FIN14C_2")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			tt.check(t, rec)
		})
	}

	var sawRegion bool
	for _, q := range upstream.Requests() {
		if q["INDICATOR"] == "WB_WDI_NY_GDP_PCAP_CD" {
			sawRegion = q["REF_AREA"] == "MYS" && q["DATABASE_ID"] == "WB_WDI"
		}
	}
	assert.True(t, sawRegion)
}

func TestHealthRoutes(t *testing.T) {
	a, _ := newTestApp(t)

	tests := []struct {
		target string
		want   string
	}{
		{"/api/health", `"status":"ok"`},
		{"/api/health/ready", `"status":"ready"`},
		{"/api/health/live", `"status":"alive"`},
		{"/api/version", `"version":"1.0.0"`},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(a, tt.target)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestViewRoutes(t *testing.T) {
	a, _ := newTestApp(t)

	t.Run("gdp view", func(t *testing.T) {
		rec := serve(a, "/api/views/gdp?range=2019-2020&combined=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status string `json:"status"`
			Data   struct {
				View     string `json:"view"`
				Degraded bool   `json:"degraded"`
				Table    struct {
					Columns []string `json:"columns"`
					Rows    []any    `json:"rows"`
				} `json:"table"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "gdp", body.Data.View)
		assert.False(t, body.Data.Degraded)
		assert.Equal(t, []string{"Year", "GDPperCapita", "GrowthRate"}, body.Data.Table.Columns)
		assert.Len(t, body.Data.Table.Rows, 2)
	})

	t.Run("degraded comparison view", func(t *testing.T) {
		rec := serve(a, "/api/views/credit-card")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"degraded":true`)
	})

	t.Run("csv export", func(t *testing.T) {
		rec := serve(a, "/api/views/gdp/export.csv?range=2019-2020")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="gdp_data.csv"`, rec.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Year,GDPperCapita\n"))
	})

	t.Run("invalid range", func(t *testing.T) {
		rec := serve(a, "/api/views/gdp?range=twenty")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouterErrors(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(a, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// no metric exporter configured
	rec = serve(a, config.MetricsEndpoint)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareStack(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) {
		c.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(a, "/api/health/live")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestStopEndsStreams(t *testing.T) {
	a, _ := newTestApp(t)

	srv := httptest.NewUnstartedServer(a.Handler())
	srv.Config.BaseContext = a.Server.BaseContext
	srv.Start()
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/views/gdp"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"view":"gdp"`)

	a.cancelBase()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		"unexpected read error: %v", err)
}
