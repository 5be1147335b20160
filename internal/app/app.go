package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"econdash/internal/catalog"
	"econdash/internal/config"
	apperrors "econdash/internal/errors"
	"econdash/internal/exporter"
	"econdash/internal/fetcher"
	"econdash/internal/infrastructure"
	customMiddleware "econdash/internal/middleware"
	"econdash/internal/services"
	handlers "econdash/internal/transport/http"
	"econdash/internal/upstream"
	"econdash/internal/view"
	"econdash/internal/websocket"
)

// BuildTime is set at link time with -ldflags "-X econdash/internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Catalog       *catalog.Catalog
	Services      *ServiceContainer

	errorHandler *apperrors.ErrorHandler
	baseCtx      context.Context
	cancelBase   context.CancelFunc
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Relay    *services.RelayService
	Views    *services.ViewService
	Health   *services.HealthService
	Exporter *exporter.Exporter
}

// NewApplication loads configuration, initialises logging and telemetry,
// and wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, logger, providers)
}

// New wires an application from initialised infrastructure. providers
// may be nil, which disables tracing export and metrics.
func New(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	cat, err := catalog.Load(cfg.GetCatalogFile())
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load metric catalog", err)
	}
	if err := cat.Validate(view.RequiredMetrics()); err != nil {
		return nil, apperrors.NewConfigError("metric catalog is incomplete", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Catalog:       cat,
		errorHandler:  apperrors.NewErrorHandler(logger, false),
	}
	a.baseCtx, a.cancelBase = context.WithCancel(context.Background())

	if providers != nil && providers.Meter != nil {
		if a.Metrics, err = infrastructure.CreateBusinessMetrics(providers.Meter); err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() {
	client := upstream.NewClient(a.Config.Upstream, a.Logger, upstream.WithMetrics(a.Metrics))
	relay := services.NewRelayService(a.Catalog, client, a.Logger)

	// views read the catalog in process through the relay
	f := fetcher.New(relay, a.Logger,
		fetcher.WithConcurrency(a.Config.Upstream.FetchConcurrency),
		fetcher.WithMetrics(a.Metrics))

	a.Services = &ServiceContainer{
		Relay:    relay,
		Views:    services.NewViewService(f, a.Metrics, a.Logger),
		Health:   services.NewHealthService(config.AppVersion, BuildTime, a.Catalog, a.Config.GetExportsDir(), a.Config.Upstream.BaseURL, a.Logger),
		Exporter: exporter.FromConfig(a.Config, a.Logger),
	}
}

func (a *Application) tracer() trace.Tracer {
	if a.OTelProviders != nil && a.OTelProviders.Tracer != nil {
		return a.OTelProviders.Tracer
	}
	return otel.Tracer(infrastructure.MeterName)
}

func (a *Application) setupRouter() {
	cfg := a.Config
	query := customMiddleware.NewQueryValidator(a.Logger)

	relayHandler := handlers.NewRelayHandler(a.Services.Relay, a.Logger, a.errorHandler)
	viewHandler := handlers.NewViewHandler(a.Services.Views, a.Services.Exporter, query, a.Logger, a.errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	streamHandler := handlers.NewStreamHandler(a.Services.Views,
		websocket.NewUpgrader(cfg.WebSocket, cfg.Security.AllowedOrigins),
		query, a.Metrics, cfg.WebSocket.WriteWait, a.Logger, a.errorHandler)

	r := chi.NewRouter()

	// RequestID → RealIP → Recovery → OTel → Logger
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(apperrors.RecoveryMiddleware(a.errorHandler))
	r.Use(customMiddleware.NewOTelMiddleware(a.tracer(), a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	if cfg.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSFromConfig(cfg.Security)))
	}
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// streams are long lived: no request timeout or compression
	r.Mount(config.WebSocketPrefix, streamHandler.Routes())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.SecurityHeaders)
		if cfg.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(cfg.Security.RateLimit, a.errorHandler).Handler)
		}
		r.Use(customMiddleware.Timeout(cfg.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(5))

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)

			r.Mount("/views", viewHandler.Routes())
			r.Mount("/", relayHandler.Routes())
		})
	})

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		// Stop cancels this context, which ends open view streams
		BaseContext: func(net.Listener) context.Context { return a.baseCtx },
	}
}

// Handler returns the application's root HTTP handler
func (a *Application) Handler() http.Handler {
	return a.Router
}

// Start starts serving in the background. cancel is called if the
// server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("upstream", a.Config.Upstream.BaseURL),
		slog.String("exports_dir", a.Config.GetExportsDir()))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if status := a.Services.Health.ReadinessCheck(ctx); status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup readiness check failed", slog.Any("services", status.Services))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.cancelBase()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received interrupt signal")

	// ctx is already cancelled; shutdown gets its own deadline
	stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return a.Stop(stopCtx)
}
