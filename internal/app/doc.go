// Package app wires the dashboard relay together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from YAML and ECON_* environment variables
//  2. Initialize logging and OpenTelemetry
//  3. Load and validate the metric catalog
//  4. Create the upstream client, relay, view and health services
//  5. Build the chi router and middleware chain
//  6. Start the HTTP server
//
// # Routes
//
//	GET /api/{metric}                      raw Data360 relay
//	GET /api/catalog                       metric catalog
//	GET /api/views[/{view}]                render models
//	GET /api/views/{view}/export.{format}  csv or xlsx download
//	GET /api/health[/ready|/live]          health probes
//	GET /api/version                       build information
//	GET /ws/views/{view}                   websocket view stream
//	GET /metrics                           Prometheus exposition
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop cancels the server base context so
// open view streams send a close frame, drains in-flight requests, then
// flushes telemetry and closes the log file.
//
// Initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
