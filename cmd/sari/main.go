package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sari-pos/sari-pos/cmd/sari/cli"
	"github.com/sari-pos/sari-pos/internal/app"
	"github.com/sari-pos/sari-pos/internal/cashiers"
	"github.com/sari-pos/sari-pos/internal/catalog"
	"github.com/sari-pos/sari-pos/internal/customers"
	"github.com/sari-pos/sari-pos/internal/dashboard"
	"github.com/sari-pos/sari-pos/internal/integration"
	"github.com/sari-pos/sari-pos/internal/observability"
	"github.com/sari-pos/sari-pos/internal/platform/cache"
	"github.com/sari-pos/sari-pos/internal/platform/db"
	"github.com/sari-pos/sari-pos/internal/pos"
	"github.com/sari-pos/sari-pos/internal/purchases"
	"github.com/sari-pos/sari-pos/internal/realtime"
	"github.com/sari-pos/sari-pos/internal/sales"
	"github.com/sari-pos/sari-pos/internal/shift"
	"github.com/sari-pos/sari-pos/jobs"
)

// drawerAdapter routes collected utang payments into the open shift.
type drawerAdapter struct {
	shifts *shift.Service
}

func (a drawerAdapter) ApplyUtangPayment(ctx context.Context, cashierID int64, terminal string, amount float64) error {
	_, err := a.shifts.RecordUtangPayment(ctx, cashierID, terminal, amount)
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, logger, os.Args[1:]))
	}

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
	cashierService := cashiers.NewService(cashiers.NewRepository(pool))

	shiftService := shift.NewService(shift.NewRepository(pool), publisher, logger)
	customerService := customers.NewService(customers.NewRepository(pool), drawerAdapter{shifts: shiftService})

	salesService := sales.NewService(sales.NewRepository(pool), publisher, logger)
	purchaseService := purchases.NewService(purchases.NewRepository(pool), publisher, logger)
	hooks := integration.NewHooks(shiftService, logger)

	registry := pos.NewRegistry()
	checkout := pos.NewCheckout(logger, salesService, shiftService, hooks)

	dashboardService := dashboard.NewService(salesService, catalogService, redisClient, cfg.DashboardCacheTTL)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		CustomersHandler: customers.NewHandler(logger, customerService),
		POSHandler:       pos.NewHandler(logger, registry, checkout, catalogService, cfg.CurrencySymbol),
		ShiftHandler:     shift.NewHandler(logger, shiftService, cashierService),
		SalesHandler:     sales.NewHandler(logger, salesService),
		PurchasesHandler: purchases.NewHandler(logger, purchaseService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		JobsHandler:      jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Pool:             pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}

// runCommand dispatches the operational subcommands.
func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	switch args[0] {
	case "cashier-add":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: sari cashier-add <name> <pin>")
			return 2
		}
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		id, err := cli.NewCashierCLI(pool).Add(ctx, args[1], args[2])
		if err != nil {
			logger.Error("add cashier", slog.Any("error", err))
			return 1
		}
		fmt.Printf("cashier %d created\n", id)
		return 0
	case "job-trigger":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: sari job-trigger <task-type>")
			return 2
		}
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			logger.Error("init jobs cli", slog.Any("error", err))
			return 1
		}
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			logger.Error("trigger job", slog.Any("error", err))
			return 1
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return 2
	}
}
