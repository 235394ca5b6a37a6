package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/tenantauth/internal/auth/http"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         *sqlite.Store
	keyManager *jwtx.KeyManager
	registry   *prometheus.Registry
	tracing    func(context.Context) error

	// Services
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:      cfg,
		logger:   NewLogger(cfg),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdown, err := SetupTracing(ctx, cfg.OTLPEndpoint, BuildVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.tracing = shutdown
	if cfg.OTLPEndpoint != "" {
		app.logger.Info("trace export enabled", "endpoint", cfg.OTLPEndpoint)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.tracing(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// OpenStore opens the SQLite database at path in WAL mode.
func OpenStore(path string) (*sqlite.Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = sqlite.FileDSN(path)
	}
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg.DatabaseFile)
	if err != nil {
		return err
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, _, err := db.MigrationVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "version", version)
	return nil
}

// initServices builds the password, token, lockout and reset policies and
// the orchestrator on top of them.
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	if pepper == "" {
		app.logger.Warn("password pepper disabled")
	}

	hasher, err := cryptox.NewHasher(
		cryptox.WithAlgorithm(cryptox.Algorithm(app.cfg.PasswordHasher)),
		cryptox.WithBcryptCost(app.cfg.BcryptCost),
		cryptox.WithPepper(pepper),
	)
	if err != nil {
		return fmt.Errorf("failed to configure password hasher: %w", err)
	}
	policy := service.NewPasswordPolicy(hasher)

	metrics := service.NewMetrics(app.registry)

	app.authService = &service.AuthService{
		Store:     app.db,
		Passwords: policy,
		Tokens: &service.TokenIssuer{
			KeyManager: app.keyManager,
			Issuer:     app.cfg.Issuer,
			AccessTTL:  app.cfg.AccessTokenTTL,
			RefreshTTL: app.cfg.RefreshTokenTTL,
		},
		Lockout: service.LockoutPolicy{
			Threshold: app.cfg.LockoutThreshold,
			Duration:  app.cfg.LockoutDuration,
		},
		Resets: &service.PasswordResetFlow{
			Store:    app.db,
			Policy:   policy,
			Notifier: service.LogNotifier{},
			Metrics:  metrics,
			TTL:      app.cfg.ResetTokenTTL,
		},
		Metrics: metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = metrics

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Service = app.authService
	router.Metrics = httpx.NewHTTPMetrics(app.registry)
	router.Gatherer = app.registry
	router.RateLimitScale = app.cfg.RateLimitScale
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
		MaxHeaderBytes:    8 * 1024,
	}
}
