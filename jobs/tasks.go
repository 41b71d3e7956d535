package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan sweeps the catalog for products at or below
	// their minimum stock level.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskStaleShiftScan flags drawer sessions left open too long.
	TaskStaleShiftScan = "shifts:stale_scan"
	// TaskDashboardWarmup rebuilds the cached dashboard snapshot.
	TaskDashboardWarmup = "dashboard:warmup"
)

// ScanPayload carries scheduling metadata shared by the scan tasks.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the catalog sweep.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewStaleShiftScanTask constructs an Asynq task for the shift sweep.
func NewStaleShiftScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleShiftScan, body, asynq.Queue(QueueDefault)), nil
}

// NewDashboardWarmupTask constructs an Asynq task for the cache rebuild.
func NewDashboardWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, body, asynq.Queue(QueueDefault)), nil
}
