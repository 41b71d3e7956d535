package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sari-pos/sari-pos/internal/money"
	"github.com/sari-pos/sari-pos/internal/pos"
)

// RepositoryPort abstracts sale persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	TotalsSince(ctx context.Context, since time.Time) (float64, error)
	BestSellers(ctx context.Context, since time.Time, limit int) ([]BestSeller, error)
}

// Publisher pushes sale and stock changes to the realtime stream so
// other terminals stay current. Optional.
type Publisher interface {
	PublishSaleRecorded(ctx context.Context, sale Sale) error
	PublishLowStockAlert(ctx context.Context, productID int64, name string, stock float64) error
}

// Service persists sales. It implements the checkout orchestrator's
// Submitter contract.
type Service struct {
	repo      RepositoryPort
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the sales service.
func NewService(repo RepositoryPort, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// SubmitSale atomically persists a checkout payload: stock is locked
// and validated per line, the sale and its items inserted, stock
// decremented, and customer totals updated. Any violation rolls the
// whole submission back and the structured reason travels to the
// operator verbatim. Shift counters are not touched here; they are
// updated by the checkout integration hook once the sale commits.
func (s *Service) SubmitSale(ctx context.Context, payload pos.Sale) (pos.SubmitResult, error) {
	if len(payload.Items) == 0 {
		return pos.SubmitResult{}, ErrEmptySale
	}
	if !payload.PaymentMethod.Valid() {
		return pos.SubmitResult{}, fmt.Errorf("sales: unknown payment method %q", payload.PaymentMethod)
	}

	createdAt := s.now().UTC()
	record := Sale{
		CustomerID:    payload.CustomerID,
		CashierID:     payload.CashierID,
		ShiftID:       payload.ShiftID,
		Terminal:      payload.Terminal,
		PaymentMethod: payload.PaymentMethod,
		TotalAmount:   money.RoundPrice(payload.Total),
		CashTendered:  payload.CashTendered,
		CreatedAt:     createdAt,
	}

	type lowStock struct {
		productID int64
		name      string
		stock     float64
	}
	var alerts []lowStock

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		saleID, err := tx.InsertSale(ctx, record)
		if err != nil {
			return err
		}
		record.ID = saleID
		record.ReceiptNumber = fmt.Sprintf("OR-%s-%06d", createdAt.Format("20060102"), saleID)
		if err := tx.SetReceiptNumber(ctx, saleID, record.ReceiptNumber); err != nil {
			return err
		}

		for _, line := range payload.Items {
			locked, err := tx.LockProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if locked.StockQuantity < line.Quantity {
				return fmt.Errorf("%w: %s has %g available",
					ErrInsufficientStock, locked.Name, locked.StockQuantity)
			}

			item := SaleItem{
				SaleID:          saleID,
				ProductID:       line.ProductID,
				ProductName:     locked.Name,
				Quantity:        line.Quantity,
				UnitPrice:       line.UnitPrice,
				RequestedAmount: line.RequestedAmount,
			}
			if _, err := tx.InsertSaleItem(ctx, item); err != nil {
				return err
			}
			if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			record.Items = append(record.Items, item)

			remaining := locked.StockQuantity - line.Quantity
			if remaining <= locked.MinStockLevel {
				alerts = append(alerts, lowStock{line.ProductID, locked.Name, remaining})
			}
		}

		if payload.CustomerID != nil {
			utang := payload.PaymentMethod == pos.PaymentUtang
			if err := tx.AddCustomerPurchase(ctx, *payload.CustomerID, record.TotalAmount, utang); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return pos.SubmitResult{}, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSaleRecorded(ctx, record); err != nil {
			s.logger.Warn("publish sale", slog.Int64("sale_id", record.ID), slog.Any("error", err))
		}
		for _, alert := range alerts {
			if err := s.publisher.PublishLowStockAlert(ctx, alert.productID, alert.name, alert.stock); err != nil {
				s.logger.Warn("publish low stock alert",
					slog.Int64("product_id", alert.productID), slog.Any("error", err))
			}
		}
	}

	return pos.SubmitResult{
		SaleID:        record.ID,
		ReceiptNumber: record.ReceiptNumber,
		CreatedAt:     createdAt,
	}, nil
}

// GetSale returns one sale with its items.
func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns sale history.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	return s.repo.ListSales(ctx, filter)
}

// TotalsSince sums sales recorded at or after the cutoff.
func (s *Service) TotalsSince(ctx context.Context, since time.Time) (float64, error) {
	return s.repo.TotalsSince(ctx, since)
}

// BestSellers returns the top products since the cutoff.
func (s *Service) BestSellers(ctx context.Context, since time.Time, limit int) ([]BestSeller, error) {
	return s.repo.BestSellers(ctx, since, limit)
}
