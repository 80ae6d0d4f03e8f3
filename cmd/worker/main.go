// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/warehouse-crm/internal/bootstrap"
	"github.com/ammerola/warehouse-crm/internal/pkg/config"
	"github.com/ammerola/warehouse-crm/internal/pkg/logger"
	"github.com/ammerola/warehouse-crm/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json").Logger

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat).Logger
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr),
		slog.String("storage_driver", cfg.Catalog.StorageDriver))

	if err := run(cfg, slogger); err != nil {
		slogger.Error("worker stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("worker shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	backend, err := bootstrap.OpenCatalogStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	// Imports write through the service so cached entries are evicted
	redisClient := bootstrap.NewRedisClient(cfg)
	defer redisClient.Close()
	if !cfg.Catalog.CacheEnabled {
		redisClient = nil
	} else if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.String("error", err.Error()))
		redisClient = nil
	}
	service := bootstrap.NewCatalogService(cfg, backend.Store, redisClient, logger)

	objects, err := bootstrap.NewObjectStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	redisOpt := bootstrap.AsynqRedisOpt(cfg)
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.Asynq.Concurrency,
		Queues:          cfg.Asynq.Queues,
		StrictPriority:  cfg.Asynq.StrictPriority,
		ErrorHandler:    asynq.ErrorHandlerFunc(handleError(logger)),
		RetryDelayFunc:  exponentialBackoff,
		ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
		HealthCheckFunc: healthCheck(logger),
		Logger:          newAsynqLogger(logger),
	})

	mux := asynq.NewServeMux()

	importProcessor := workers.NewImportProcessor(service, objects, logger)
	mux.HandleFunc(workers.TypeCatalogImport, importProcessor.ProcessImport)

	reportProcessor := workers.NewReportProcessor(service, objects, cfg.AWS.PresignExpiry, logger)
	mux.HandleFunc(workers.TypeLowStockReport, reportProcessor.ProcessLowStockReport)

	// Objects outlive their download links by one cleanup cycle at most
	cleanupProcessor := workers.NewCleanupProcessor(objects, cfg.AWS.PresignExpiry, logger)
	mux.HandleFunc(workers.TypeCleanupObjects, cleanupProcessor.CleanupObjects)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: newAsynqLogger(logger),
	})
	spec := fmt.Sprintf("@every %s", cfg.Catalog.CleanupInterval)
	entryID, err := scheduler.Register(spec, workers.NewCleanupTask())
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	logger.Info("cleanup scheduled",
		slog.String("entry_id", entryID),
		slog.Duration("interval", cfg.Catalog.CleanupInterval))

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to run worker server: %w", err)
	}

	logger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	srv.Shutdown()
	return nil
}

func handleError(logger *slog.Logger) func(ctx context.Context, task *asynq.Task, err error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		logger.ErrorContext(ctx, "task processing failed",
			slog.String("type", task.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.String("error", err.Error()))
	}
}

func exponentialBackoff(n int, _ error, _ *asynq.Task) time.Duration {
	const (
		baseDelay = time.Second
		maxDelay  = 10 * time.Minute
	)
	if n > 10 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func healthCheck(logger *slog.Logger) func(error) {
	return func(err error) {
		if err != nil {
			logger.Error("worker health check failed", slog.String("error", err.Error()))
		}
	}
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
