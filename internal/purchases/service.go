package purchases

import (
	"context"
	"log/slog"
	"time"

	"github.com/sari-pos/sari-pos/internal/money"
)

// RepositoryPort abstracts purchase persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (*Purchase, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, error)
}

// Publisher pushes stock level changes to the realtime stream so open
// terminals see restocked quantities. Optional.
type Publisher interface {
	PublishInventoryUpdate(ctx context.Context, productID int64, stock float64) error
}

// Service records supplier deliveries.
type Service struct {
	repo      RepositoryPort
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the purchases service.
func NewService(repo RepositoryPort, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// ReceivePurchase persists a supplier delivery: the purchase and its
// lines inserted, each product's stock incremented and its cost price
// moved to the delivered unit cost. Any bad line rolls the whole
// delivery back.
func (s *Service) ReceivePurchase(ctx context.Context, req CreatePurchaseRequest) (*Purchase, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyPurchase
	}
	var total float64
	for _, line := range req.Items {
		if !money.IsFinite(line.Quantity) || line.Quantity <= 0 {
			return nil, ErrInvalidLine
		}
		if !money.IsFinite(line.UnitCost) || line.UnitCost < 0 {
			return nil, ErrInvalidLine
		}
		total += money.RoundPrice(line.Quantity * line.UnitCost)
	}

	record := Purchase{
		Supplier:  req.Supplier,
		Notes:     req.Notes,
		TotalCost: money.RoundPrice(total),
		CreatedAt: s.now().UTC(),
	}

	type stockLevel struct {
		productID int64
		stock     float64
	}
	var levels []stockLevel

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchaseID, err := tx.InsertPurchase(ctx, record)
		if err != nil {
			return err
		}
		record.ID = purchaseID

		for _, line := range req.Items {
			received, err := tx.ReceiveStock(ctx, line.ProductID, line.Quantity, line.UnitCost)
			if err != nil {
				return err
			}

			item := PurchaseItem{
				PurchaseID:  purchaseID,
				ProductID:   line.ProductID,
				ProductName: received.Name,
				Quantity:    line.Quantity,
				UnitCost:    money.RoundPrice(line.UnitCost),
			}
			if _, err := tx.InsertPurchaseItem(ctx, item); err != nil {
				return err
			}
			record.Items = append(record.Items, item)
			levels = append(levels, stockLevel{line.ProductID, received.StockQuantity})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		for _, level := range levels {
			if err := s.publisher.PublishInventoryUpdate(ctx, level.productID, level.stock); err != nil {
				s.logger.Warn("publish inventory update",
					slog.Int64("product_id", level.productID), slog.Any("error", err))
			}
		}
	}
	return &record, nil
}

// GetPurchase returns one purchase with its lines.
func (s *Service) GetPurchase(ctx context.Context, id int64) (*Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// ListPurchases returns purchase history, newest first.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	return s.repo.ListPurchases(ctx, filter)
}
