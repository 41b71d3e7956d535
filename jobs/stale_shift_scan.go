package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sari-pos/sari-pos/internal/shift"
)

// StaleShiftScanner flags drawer sessions that were never closed, the
// usual sign of a cashier leaving without counting out. Flagged shifts
// are only reported; closing one still requires the cashier's count.
type StaleShiftScanner struct {
	shifts    *shift.Service
	openAfter time.Duration
	logger    *slog.Logger
}

// NewStaleShiftScanner constructs the scanner. openAfter is how long a
// shift may stay open before it is considered stale.
func NewStaleShiftScanner(shifts *shift.Service, openAfter time.Duration, logger *slog.Logger) *StaleShiftScanner {
	if openAfter <= 0 {
		openAfter = 16 * time.Hour
	}
	return &StaleShiftScanner{shifts: shifts, openAfter: openAfter, logger: logger}
}

// Handle processes TaskStaleShiftScan tasks.
func (s *StaleShiftScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	stale, err := s.shifts.StaleOpenShifts(ctx, s.openAfter)
	if err != nil {
		return err
	}
	for _, sh := range stale {
		s.logger.Warn("stale open shift",
			slog.Int64("shift_id", sh.ID),
			slog.Int64("cashier_id", sh.CashierID),
			slog.String("terminal", sh.Terminal),
			slog.Time("started_at", sh.StartedAt))
	}
	s.logger.Info("stale shift scan complete", slog.Int("flagged", len(stale)))
	return nil
}
