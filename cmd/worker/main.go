package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sari-pos/sari-pos/internal/app"
	"github.com/sari-pos/sari-pos/internal/catalog"
	"github.com/sari-pos/sari-pos/internal/dashboard"
	jobmetrics "github.com/sari-pos/sari-pos/internal/jobs"
	"github.com/sari-pos/sari-pos/internal/platform/cache"
	"github.com/sari-pos/sari-pos/internal/platform/db"
	"github.com/sari-pos/sari-pos/internal/realtime"
	"github.com/sari-pos/sari-pos/internal/sales"
	"github.com/sari-pos/sari-pos/internal/shift"
	"github.com/sari-pos/sari-pos/jobs"
)

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	publisher := realtime.NewPublisher(redisClient)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	shiftService := shift.NewService(shift.NewRepository(pool), publisher, logger)
	salesService := sales.NewService(sales.NewRepository(pool), publisher, logger)
	dashboardService := dashboard.NewService(salesService, catalogService, redisClient, cfg.DashboardCacheTTL)

	lowStockScanner := jobs.NewLowStockScanner(catalogService, publisher, logger)
	staleShiftScanner := jobs.NewStaleShiftScanner(shiftService, cfg.StaleShiftAfter, logger)
	dashboardWarmer := jobs.NewDashboardWarmer(dashboardService, logger)

	now := time.Now().UTC()
	lowStockTask, err := jobs.NewLowStockScanTask(now)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	staleShiftTask, err := jobs.NewStaleShiftScanTask(now)
	if err != nil {
		logger.Error("build stale shift task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewDashboardWarmupTask(now)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockScanner.Handle},
			{Type: jobs.TaskStaleShiftScan, Handler: staleShiftScanner.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: dashboardWarmer.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: staleShiftTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 5 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
		Metrics: jobmetrics.NewMetrics(nil),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
