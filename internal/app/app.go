package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"google.golang.org/api/option"

	"finreport/internal/cache"
	"finreport/internal/config"
	"finreport/internal/errors"
	"finreport/internal/fetch"
	"finreport/internal/infrastructure"
	"finreport/internal/mapping"
	customMiddleware "finreport/internal/middleware"
	"finreport/internal/pipeline"
	"finreport/internal/services"
	handlers "finreport/internal/transport/http"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *errors.ErrorHandler
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Book     *mapping.Book
	Pipeline *pipeline.Pipeline
	Cache    *cache.ResultCache // nil when caching is disabled
	Fetcher  *fetch.Fetcher
	Report   *services.ReportService
	Health   *services.HealthService

	httpMetrics *customMiddleware.OTelMiddleware
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  errors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices loads the mapping and wires the pipeline, fetcher, cache and services
func (a *Application) initializeServices(ctx context.Context) error {
	book, err := LoadMapping(ctx, a.Config, a.Paths, a.Logger)
	if err != nil {
		return err
	}
	if err := book.Validate(); err != nil {
		return fmt.Errorf("invalid mapping: %w", err)
	}

	pipelineMetrics, err := pipeline.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	p, err := pipeline.New(book,
		pipeline.WithLogger(a.Logger),
		pipeline.WithTracerProvider(a.OTelProviders.TracerProvider),
		pipeline.WithMetrics(pipelineMetrics),
		pipeline.WithYoYOffset(a.Config.Pipeline.YoYOffset),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	fetcher := fetch.NewFetcher(fetch.NewFileSource(a.Paths.RawDir), fetch.Config{
		Timeout:           a.Config.Fetch.Timeout,
		RequestsPerSecond: a.Config.Fetch.RPS,
		Burst:             a.Config.Fetch.Burst,
	}, a.Logger)

	// The OTel middleware owns the business instruments; the report service shares them
	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	opts := []services.ReportServiceOption{services.WithBusinessMetrics(otelMiddleware.Metrics())}
	var resultCache *cache.ResultCache
	if a.Config.Cache.TTL > 0 && a.Config.Cache.MaxEntries > 0 {
		resultCache = cache.New(a.Config.Cache.TTL, a.Config.Cache.MaxEntries)
		opts = append(opts, services.WithCache(resultCache))
	}
	reportService := services.NewReportService(fetcher, p, a.Logger, opts...)

	a.Services = &ServiceContainer{
		Book:        book,
		Pipeline:    p,
		Cache:       resultCache,
		Fetcher:     fetcher,
		Report:      reportService,
		Health:      services.NewHealthService(config.AppVersion, a.Paths, book, reportService, a.Logger),
		httpMetrics: otelMiddleware,
	}

	a.Logger.Info("Services initialized",
		slog.String("default_provider", a.Config.Provider().String()),
		slog.Bool("cache_enabled", resultCache != nil),
		slog.Bool("sheets_mapping", a.Config.Sheets.Enabled()))
	return nil
}

// LoadMapping reads the column mapping from Google Sheets when a spreadsheet
// is configured and from the mapping workbook otherwise
func LoadMapping(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*mapping.Book, error) {
	if cfg.Sheets.Enabled() {
		var opts []option.ClientOption
		if paths.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(paths.CredentialsFile))
		}
		logger.InfoContext(ctx, "Loading mapping from spreadsheet",
			slog.String("spreadsheet_id", cfg.Sheets.SpreadsheetID))
		book, err := mapping.LoadSpreadsheet(ctx, cfg.Sheets.SpreadsheetID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load mapping spreadsheet: %w", err)
		}
		return book, nil
	}

	logger.InfoContext(ctx, "Loading mapping workbook", slog.String("path", paths.MappingFile))
	book, err := mapping.LoadWorkbook(paths.MappingFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping workbook: %w", err)
	}
	return book, nil
}

// setupRouter builds the router.
// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(a.Services.httpMetrics.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Scrapes stay out of the request metrics they report on
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	reportHandler := handlers.NewReportHandler(a.Services.Report, a.Config.Provider(), a.Logger, a.ErrorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/reports", reportHandler.Routes())
		r.Get("/providers", reportHandler.GetProviders)

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. cancel is called if the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully", slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Services != nil && a.Services.Cache != nil {
		a.Services.Cache.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted or until the server fails
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck checks the directories the service reads and writes
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	writable := map[string]string{
		"Exports": a.Paths.ExportDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range writable {
		if dir == "" {
			continue
		}
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if !config.FileExists(a.Paths.RawDir) {
		warnings = append(warnings, fmt.Sprintf("Raw statement directory not found: %s", a.Paths.RawDir))
	}

	if a.Config.Sheets.Enabled() && a.Paths.CredentialsFile != "" && !config.FileExists(a.Paths.CredentialsFile) {
		a.Logger.InfoContext(ctx, "Credentials file not found", slog.String("path", a.Paths.CredentialsFile))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
