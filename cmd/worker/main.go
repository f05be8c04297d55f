package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirepurchase/hpadmin/internal/app"
	"github.com/hirepurchase/hpadmin/internal/backend"
	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/observability"
	"github.com/hirepurchase/hpadmin/internal/platform/cache"
	"github.com/hirepurchase/hpadmin/internal/platform/db"
	"github.com/hirepurchase/hpadmin/internal/reference"
	"github.com/hirepurchase/hpadmin/jobs"
)

const referenceWarmupSpec = "*/15 * * * *"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	// The worker has no HTTP surface; its counters live on a private registry.
	metrics := observability.NewMetrics()

	backendClient := backend.NewClient(backend.Config{
		BaseURL:       cfg.BackendURL,
		Token:         cfg.BackendToken,
		Timeout:       cfg.BackendTimeout,
		RatePerSecond: cfg.BackendRateLimit,
	})
	referenceService := reference.NewService(backendClient, reference.NewCache(redisClient, cfg.ReferenceCacheTTL), logger)
	importService := importer.NewService(
		importer.NewSessionStore(redisClient, cfg.ImportSessionTTL),
		importer.NewExecutor(backendClient, logger, metrics.Jobs()),
		importer.NewHistory(pool),
		referenceService,
		logger,
	)

	importJob := jobs.NewImportExecuteJob(importService, logger, metrics.Jobs())
	warmupJob := jobs.NewReferenceWarmupJob(referenceService, logger, metrics.Jobs())

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.AsynqRedis(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskImportExecute, Handler: importJob.Handle},
			{Type: jobs.TaskReferenceWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: referenceWarmupSpec, Task: jobs.NewReferenceWarmupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
