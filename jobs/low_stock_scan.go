package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sari-pos/sari-pos/internal/catalog"
	"github.com/sari-pos/sari-pos/internal/realtime"
)

// LowStockScanner sweeps the catalog and broadcasts an alert for every
// product at or below its minimum level. The checkout path already
// alerts on the sale that crossed the threshold; this sweep catches
// stock that drifted low through manual adjustments.
type LowStockScanner struct {
	catalog   *catalog.Service
	publisher *realtime.Publisher
	logger    *slog.Logger
}

// NewLowStockScanner constructs the scanner.
func NewLowStockScanner(catalogSvc *catalog.Service, publisher *realtime.Publisher, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{catalog: catalogSvc, publisher: publisher, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	products, err := s.catalog.LowStock(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if s.publisher == nil {
			break
		}
		if err := s.publisher.PublishLowStockAlert(ctx, p.ID, p.Name, p.StockQuantity); err != nil {
			s.logger.Warn("publish low stock alert",
				slog.Int64("product_id", p.ID),
				slog.Any("error", err))
		}
	}
	s.logger.Info("low stock scan complete", slog.Int("flagged", len(products)))
	return nil
}
