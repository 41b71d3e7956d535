package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sari-pos/sari-pos/internal/dashboard"
)

// DashboardWarmer rebuilds the cached dashboard snapshot so the first
// terminal of the morning gets a warm read.
type DashboardWarmer struct {
	dashboard *dashboard.Service
	logger    *slog.Logger
}

// NewDashboardWarmer constructs the warmer.
func NewDashboardWarmer(dashboardSvc *dashboard.Service, logger *slog.Logger) *DashboardWarmer {
	return &DashboardWarmer{dashboard: dashboardSvc, logger: logger}
}

// Handle processes TaskDashboardWarmup tasks.
func (w *DashboardWarmer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	if err := w.dashboard.Invalidate(ctx); err != nil {
		w.logger.Warn("dashboard cache invalidate", slog.Any("error", err))
	}
	if _, err := w.dashboard.Stats(ctx); err != nil {
		return err
	}
	w.logger.Info("dashboard cache warmed")
	return nil
}
