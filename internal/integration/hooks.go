// Package integration wires domain events between modules. The
// checkout orchestrator emits events; hooks route them to the shift
// projection so no module mutates another's state as a side effect.
package integration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sari-pos/sari-pos/internal/pos"
)

// ShiftRecorder applies a confirmed sale to the shift projection.
type ShiftRecorder interface {
	RecordSale(ctx context.Context, evt pos.SaleRecordedEvent) error
}

// Hooks consumes engine events.
type Hooks struct {
	shifts ShiftRecorder
	logger *slog.Logger
}

// NewHooks constructs integration hooks.
func NewHooks(shifts ShiftRecorder, logger *slog.Logger) *Hooks {
	return &Hooks{shifts: shifts, logger: logger}
}

// HandleSaleRecorded updates the shift counters for a persisted sale.
func (h *Hooks) HandleSaleRecorded(ctx context.Context, evt pos.SaleRecordedEvent) error {
	if h == nil || h.shifts == nil {
		return nil
	}
	if evt.SaleID == 0 {
		return errors.New("integration: sale id required")
	}
	if err := h.shifts.RecordSale(ctx, evt); err != nil {
		h.logger.Error("record sale on shift",
			slog.Int64("sale_id", evt.SaleID),
			slog.Int64("shift_id", evt.ShiftID),
			slog.Any("error", err))
		return err
	}
	return nil
}
