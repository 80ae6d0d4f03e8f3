// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/warehouse-crm/internal/bootstrap"
	"github.com/ammerola/warehouse-crm/internal/handlers"
	"github.com/ammerola/warehouse-crm/internal/handlers/middleware"
	"github.com/ammerola/warehouse-crm/internal/pkg/config"
	"github.com/ammerola/warehouse-crm/internal/pkg/logger"
	"github.com/ammerola/warehouse-crm/internal/viewport"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json").Logger

	slogger.Info("starting warehouse crm api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat).Logger
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
		slog.String("storage_driver", cfg.Catalog.StorageDriver),
	)

	// Cancelled on shutdown; stops background middleware goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup(slogger)

	server := setupHTTPServer(ctx, cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	backend        *bootstrap.CatalogBackend
	redisClient    *redis.Client
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector
	routes         handlers.Routes
}

func (d *dependencies) cleanup(logger *slog.Logger) {
	if d.asynqClient != nil {
		if err := d.asynqClient.Close(); err != nil {
			logger.Error("failed to close asynq client", slog.String("error", err.Error()))
		}
	}
	if d.asynqInspector != nil {
		d.asynqInspector.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.backend != nil {
		if err := d.backend.Close(context.Background()); err != nil {
			logger.Error("failed to close catalog store", slog.String("error", err.Error()))
		}
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	backend, err := bootstrap.OpenCatalogStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.backend = backend

	checks := []handlers.DependencyCheck{handlers.StoreCheck(backend.Driver, backend.Store)}
	if backend.Database != nil {
		checks = append(checks, handlers.DatabaseCheck(backend.Database))
	}

	// The cache is optional; an unreachable redis leaves reads uncached
	if cfg.Catalog.CacheEnabled {
		logger.Info("connecting to redis",
			slog.String("host", cfg.Redis.Host),
			slog.String("port", cfg.Redis.Port),
		)
		client := bootstrap.NewRedisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", slog.String("error", err.Error()))
			client.Close()
		} else {
			deps.redisClient = client
			checks = append(checks, handlers.RedisCheck(client))
		}
	}

	service := bootstrap.NewCatalogService(cfg, backend.Store, deps.redisClient, logger)

	objects, err := bootstrap.NewObjectStorage(ctx, cfg, logger)
	if err != nil {
		deps.cleanup(logger)
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	logger.Info("initializing asynq client", slog.String("redis_addr", cfg.Asynq.RedisAddr))
	redisOpt := bootstrap.AsynqRedisOpt(cfg)
	deps.asynqClient = asynq.NewClient(redisOpt)
	deps.asynqInspector = asynq.NewInspector(redisOpt)
	checks = append(checks, handlers.AsynqCheck(deps.asynqInspector))

	plan, err := loadFloorPlan(cfg)
	if err != nil {
		deps.cleanup(logger)
		return nil, fmt.Errorf("failed to load floor plan: %w", err)
	}
	layout, err := handlers.NewLayoutHandler(plan, viewport.Options{
		ZoomStep: cfg.Layout.ZoomStep,
		MinScale: cfg.Layout.MinScale,
		MaxScale: cfg.Layout.MaxScale,
	}, logger)
	if err != nil {
		deps.cleanup(logger)
		return nil, err
	}

	maxFileSize := int64(cfg.Catalog.ImportMaxSizeMB) << 20
	deps.routes = handlers.Routes{
		Catalog: handlers.NewCatalogHandler(service, cfg.Catalog.MaxPageSize, logger),
		Export:  handlers.NewExportHandler(service, cfg.Catalog.MaxPageSize, logger),
		Jobs:    handlers.NewJobHandler(objects, deps.asynqClient, deps.asynqInspector, maxFileSize, logger),
		Layout:  layout,
		Health:  handlers.NewHealthHandler(cfg, logger, checks...),
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func loadFloorPlan(cfg *config.Config) (*viewport.FloorPlan, error) {
	if cfg.Layout.FloorPlanFile == "" {
		return viewport.DefaultFloorPlan()
	}
	return viewport.LoadFloorPlanFile(cfg.Layout.FloorPlanFile)
}

func setupHTTPServer(ctx context.Context, cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mws := []func(http.Handler) http.Handler{
		middleware.RequestID(cfg.Security.RequestIDHeader),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	}
	if cfg.Security.RateLimitRequests > 0 {
		mws = append(mws, middleware.RateLimit(ctx, cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration))
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	if cfg.Security.SecureHeaders {
		mws = append(mws, middleware.SecureHeaders)
	}
	mws = append(mws, middleware.Compression)
	if cfg.Catalog.ProcessingTimeout > 0 {
		mws = append(mws, middleware.Timeout(cfg.Catalog.ProcessingTimeout))
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        middleware.Chain(handlers.NewRouter(deps.routes), mws...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
