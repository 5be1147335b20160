// Package shared holds helpers used across the dashboard packages.
//
// The testutil subpackage provides a capturing slog handler and Data360
// payload fixtures for tests that exercise the relay and the series pipeline.
package shared
