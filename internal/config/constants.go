package config

import "time"

// Application constants
const (
	AppName    = "Malaysia Economic Dashboard"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable (ECON_SERVER_PORT, ...)
	EnvPrefix = "ECON"

	DefaultPort             = 4000
	DefaultUpstreamBaseURL  = "https://data360api.worldbank.org"
	DefaultUpstreamDataPath = "/data360/data"
	DefaultRegionCode       = "MYS"
	DefaultUpstreamTimeout  = 30 * time.Second
	DefaultFetchConcurrency = 5

	DefaultLogLevel   = "info"
	DefaultLogsDir    = "logs"
	DefaultExportsDir = "exports"

	// API Endpoints
	APIBasePath     = "/api"
	ViewsEndpoint   = "/api/views"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
	WebSocketPrefix = "/ws"
)
