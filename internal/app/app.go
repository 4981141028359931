package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"swapsum/internal/auth"
	"swapsum/internal/config"
	apierrors "swapsum/internal/errors"
	"swapsum/internal/infrastructure"
	"swapsum/internal/middleware"
	"swapsum/internal/services"
	httptransport "swapsum/internal/transport/http"
	"swapsum/internal/warehouse"
)

// Application holds the wired server components.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	OTelProviders   *infrastructure.OTelProviders
	BusinessMetrics *infrastructure.BusinessMetrics
	SystemCollector *infrastructure.SystemMetricsCollector

	Auth          *auth.Service
	Warehouse     *warehouse.Warehouse
	ReportService *services.ReportService
	HealthService *services.HealthService

	startTime time.Time
	cancel    context.CancelFunc
}

// NewApplication loads configuration and wires every component together.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		startTime:     time.Now(),
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}
	if err := app.setupRouter(); err != nil {
		return nil, err
	}
	app.createServer()

	logger.Info("application initialized",
		slog.String("version", config.AppVersion),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("auth_enabled", cfg.Auth.Enabled),
		slog.Bool("warehouse_enabled", cfg.Warehouse.Enabled))

	return app, nil
}

func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.BusinessMetrics = metrics

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create system metrics collector: %w", err)
	}
	a.SystemCollector = collector

	a.Auth = auth.NewService(a.Config.Auth, a.Logger)

	if a.Config.Warehouse.Enabled {
		wh, err := warehouse.Open(a.Config.Warehouse, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open warehouse: %w", err)
		}
		a.Warehouse = wh
	}

	a.ReportService = services.NewReportService(a.Config, a.Warehouse, a.BusinessMetrics, a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, a.Config.Paths, a.Warehouse, a.Logger)

	return nil
}

func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	otelMiddleware, err := middleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create otel middleware: %w", err)
	}

	// Request identity before everything else so every log line and
	// trace carries the same ID.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	secure := middleware.DefaultSecureHeaders()
	secure.DevMode = a.Config.Logging.Development

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(middleware.BusinessMetricsMiddleware(a.BusinessMetrics))
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(a.Logger))
		r.Use(secure.Handler)

		if a.Config.Security.EnableCORS {
			r.Use(middleware.CORS(middleware.CORSConfig{
				AllowedOrigins:   a.Config.Security.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", middleware.PasswordHeader},
				AllowCredentials: false,
				MaxAge:           300,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			)
			r.Use(limiter.Handler)
		}

		r.Route("/api", a.setupAPIRoutes)
	})

	// Prometheus scrapes stay outside the API middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(middleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))

	validation := middleware.NewValidationMiddleware(a.Logger,
		apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development))
	r.Use(validation.ValidateRequest)

	healthHandler := httptransport.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/health/ready", healthHandler.ReadinessCheck)
	r.Get("/health/live", healthHandler.LivenessCheck)
	r.Get("/version", healthHandler.Version)

	reportHandler := httptransport.NewReportHandler(a.ReportService, a.Config.Server.MaxUploadBytes, a.Logger)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuditLog(a.Logger))
		if a.Config.Auth.Enabled {
			r.Use(middleware.PasswordAuth(a.Logger, a.Auth))
		}
		reportHandler.RegisterRoutes(r)
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the HTTP server and background collectors. It returns
// once the listener is up; use Run for the full serve-until-signal loop.
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.SystemCollector.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server starting", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			cancel()
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts the server and its dependencies down gracefully.
func (a *Application) Stop() error {
	a.Logger.Info("shutting down",
		slog.Duration("uptime", time.Since(a.startTime)))

	if a.cancel != nil {
		a.cancel()
	}
	a.SystemCollector.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("http server shutdown failed", slog.String("error", err.Error()))
		firstErr = err
	}

	if a.Warehouse != nil {
		if err := a.Warehouse.Close(); err != nil {
			a.Logger.Error("warehouse close failed", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// Run starts the application and blocks until an interrupt or SIGTERM.
func (a *Application) Run() error {
	ctx := context.Background()

	if err := a.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	a.Logger.Info("signal received", slog.String("signal", sig.String()))

	return a.Stop()
}
