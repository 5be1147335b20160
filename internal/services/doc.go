// Package services implements the business logic between HTTP handlers and
// the relay, fetcher and view packages.
//
// # Available Services
//
//   - RelayService: resolves a metric through the catalog and forwards it to Data360
//   - ViewService: fetches the series of a view concurrently and builds its page
//   - HealthService: liveness, readiness and version reporting
//
// Services take their collaborators and a *slog.Logger through their
// constructors and never reach for globals.
package services
