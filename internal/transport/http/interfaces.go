package http

import (
	"context"

	"econdash/internal/catalog"
	"econdash/internal/services"
	"econdash/internal/view"
)

// RelayServiceInterface defines the relay operations used by handlers
type RelayServiceInterface interface {
	Relay(ctx context.Context, metric string) ([]byte, error)
	Catalog() []catalog.Source
}

// ViewServiceInterface defines the view operations used by handlers
type ViewServiceInterface interface {
	Definitions() []view.Definition
	Build(ctx context.Context, name string, p view.Params) (view.Page, error)
	Stream(ctx context.Context, name string, p view.Params, emit func(services.StreamMessage)) error
}

// HealthServiceInterface defines the health operations used by handlers
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
