// Package http implements the HTTP handlers of the dashboard server.
//
// Handlers are thin: they parse and validate the request, call a service
// interface and shape the response. Errors flow through
// errors.ErrorHandler as RFC 7807 problems, with one exception: the
// metric relay answers upstream failures with the fixed body
// {"error":"Failed to fetch data"} that dashboard clients expect.
//
// # Routes
//
//	GET /api/catalog                      metric catalog
//	GET /api/{metric}                     upstream payload, verbatim
//	GET /api/views                        view definitions
//	GET /api/views/{view}                 render model of a built view
//	GET /api/views/{view}/export.{format} csv or xlsx table export
//	GET /ws/views/{view}                  render model transitions
//	GET /api/health, /api/health/ready, /api/health/live, /api/version
//
// Each handler exposes Routes() for mounting on the application router.
package http
