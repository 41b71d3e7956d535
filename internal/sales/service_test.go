package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sari-pos/sari-pos/internal/pos"
)

type fakeStock struct {
	name     string
	qty      float64
	minLevel float64
}

type fakeRepo struct {
	stock     map[int64]*fakeStock
	sales     map[int64]*Sale
	nextSale  int64
	nextItem  int64
	purchases []purchaseCall
	txErr     error
}

type purchaseCall struct {
	customerID int64
	amount     float64
	utang      bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stock: make(map[int64]*fakeStock),
		sales: make(map[int64]*Sale),
	}
}

// WithTx snapshots state up front and restores it when fn fails, so the
// fake behaves like a rolled-back transaction.
func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.txErr != nil {
		return r.txErr
	}
	stockBefore := make(map[int64]*fakeStock, len(r.stock))
	for id, s := range r.stock {
		cp := *s
		stockBefore[id] = &cp
	}
	salesBefore := make(map[int64]*Sale, len(r.sales))
	for id, s := range r.sales {
		cp := *s
		salesBefore[id] = &cp
	}
	nextSale, nextItem := r.nextSale, r.nextItem
	purchases := len(r.purchases)

	if err := fn(ctx, (*fakeTx)(r)); err != nil {
		r.stock = stockBefore
		r.sales = salesBefore
		r.nextSale, r.nextItem = nextSale, nextItem
		r.purchases = r.purchases[:purchases]
		return err
	}
	return nil
}

func (r *fakeRepo) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sale
	return &cp, nil
}

func (r *fakeRepo) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, sale := range r.sales {
		out = append(out, *sale)
	}
	return out, len(out), nil
}

func (r *fakeRepo) TotalsSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	for _, sale := range r.sales {
		if !sale.CreatedAt.Before(since) {
			total += sale.TotalAmount
		}
	}
	return total, nil
}

func (r *fakeRepo) BestSellers(ctx context.Context, since time.Time, limit int) ([]BestSeller, error) {
	return nil, nil
}

type fakeTx fakeRepo

func (t *fakeTx) LockProduct(ctx context.Context, productID int64) (LockedProduct, error) {
	s, ok := t.stock[productID]
	if !ok {
		return LockedProduct{}, ErrProductMissing
	}
	return LockedProduct{Name: s.name, StockQuantity: s.qty, MinStockLevel: s.minLevel}, nil
}

func (t *fakeTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	t.nextSale++
	sale.ID = t.nextSale
	t.sales[sale.ID] = &sale
	return sale.ID, nil
}

func (t *fakeTx) SetReceiptNumber(ctx context.Context, saleID int64, number string) error {
	t.sales[saleID].ReceiptNumber = number
	return nil
}

func (t *fakeTx) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	t.nextItem++
	item.ID = t.nextItem
	sale := t.sales[item.SaleID]
	sale.Items = append(sale.Items, item)
	return item.ID, nil
}

func (t *fakeTx) DecrementStock(ctx context.Context, productID int64, qty float64) error {
	t.stock[productID].qty -= qty
	return nil
}

func (t *fakeTx) AddCustomerPurchase(ctx context.Context, customerID int64, amount float64, utang bool) error {
	t.purchases = append(t.purchases, purchaseCall{customerID, amount, utang})
	return nil
}

type capturePublisher struct {
	recorded []Sale
	alerts   []lowStockAlert
}

type lowStockAlert struct {
	productID int64
	name      string
	stock     float64
}

func (p *capturePublisher) PublishSaleRecorded(ctx context.Context, sale Sale) error {
	p.recorded = append(p.recorded, sale)
	return nil
}

func (p *capturePublisher) PublishLowStockAlert(ctx context.Context, productID int64, name string, stock float64) error {
	p.alerts = append(p.alerts, lowStockAlert{productID, name, stock})
	return nil
}

func newTestService(repo *fakeRepo) (*Service, *capturePublisher) {
	pub := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, pub, logger)
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC) }
	return svc, pub
}

func cashPayload() pos.Sale {
	tendered := 100.0
	return pos.Sale{
		CashierID:     1,
		ShiftID:       5,
		Terminal:      "till-1",
		PaymentMethod: pos.PaymentCash,
		Total:         51.00,
		CashTendered:  &tendered,
		Items: []pos.SaleItem{
			{ProductID: 10, Quantity: 2, UnitPrice: 25.50},
		},
	}
}

func TestSubmitSaleCash(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[10] = &fakeStock{name: "Canned Sardines", qty: 12, minLevel: 3}
	svc, pub := newTestService(repo)

	result, err := svc.SubmitSale(context.Background(), cashPayload())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.SaleID)
	assert.Equal(t, "OR-20260829-000001", result.ReceiptNumber)

	sale, err := svc.GetSale(context.Background(), result.SaleID)
	require.NoError(t, err)
	assert.Equal(t, pos.PaymentCash, sale.PaymentMethod)
	assert.InDelta(t, 51.00, sale.TotalAmount, 0.0001)
	require.NotNil(t, sale.CashTendered)
	assert.InDelta(t, 100.0, *sale.CashTendered, 0.0001)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Canned Sardines", sale.Items[0].ProductName)

	assert.InDelta(t, 10.0, repo.stock[10].qty, 0.0001)
	require.Len(t, pub.recorded, 1)
	assert.Empty(t, pub.alerts)
	assert.Empty(t, repo.purchases)
}

func TestSubmitSaleEmpty(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	payload := cashPayload()
	payload.Items = nil
	_, err := svc.SubmitSale(context.Background(), payload)
	require.ErrorIs(t, err, ErrEmptySale)
}

func TestSubmitSaleUnknownProduct(t *testing.T) {
	repo := newFakeRepo()
	svc, pub := newTestService(repo)

	_, err := svc.SubmitSale(context.Background(), cashPayload())
	require.ErrorIs(t, err, ErrProductMissing)
	assert.Empty(t, repo.sales)
	assert.Empty(t, pub.recorded)
}

func TestSubmitSaleInsufficientStockRollsBack(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[10] = &fakeStock{name: "Canned Sardines", qty: 5, minLevel: 1}
	repo.stock[11] = &fakeStock{name: "Cooking Oil", qty: 0.5, minLevel: 0.2}
	svc, pub := newTestService(repo)

	payload := cashPayload()
	payload.Items = append(payload.Items, pos.SaleItem{ProductID: 11, Quantity: 1, UnitPrice: 80})

	_, err := svc.SubmitSale(context.Background(), payload)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Cooking Oil")

	// First line's decrement must not survive the rollback.
	assert.InDelta(t, 5.0, repo.stock[10].qty, 0.0001)
	assert.Empty(t, repo.sales)
	assert.Empty(t, pub.recorded)
}

func TestSubmitSaleLowStockAlertAfterCommit(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[10] = &fakeStock{name: "Canned Sardines", qty: 4, minLevel: 3}
	svc, pub := newTestService(repo)

	_, err := svc.SubmitSale(context.Background(), cashPayload())
	require.NoError(t, err)

	require.Len(t, pub.alerts, 1)
	assert.Equal(t, int64(10), pub.alerts[0].productID)
	assert.InDelta(t, 2.0, pub.alerts[0].stock, 0.0001)
}

func TestSubmitSaleUtangUpdatesCustomer(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[10] = &fakeStock{name: "Canned Sardines", qty: 12, minLevel: 3}
	svc, _ := newTestService(repo)

	customerID := int64(7)
	payload := cashPayload()
	payload.CustomerID = &customerID
	payload.PaymentMethod = pos.PaymentUtang
	payload.CashTendered = nil

	_, err := svc.SubmitSale(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, repo.purchases, 1)
	assert.Equal(t, int64(7), repo.purchases[0].customerID)
	assert.InDelta(t, 51.00, repo.purchases[0].amount, 0.0001)
	assert.True(t, repo.purchases[0].utang)
}

func TestSubmitSaleCardCustomerPurchaseNotUtang(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[10] = &fakeStock{name: "Canned Sardines", qty: 12, minLevel: 3}
	svc, _ := newTestService(repo)

	customerID := int64(7)
	payload := cashPayload()
	payload.CustomerID = &customerID
	payload.PaymentMethod = pos.PaymentCard
	payload.CashTendered = nil

	_, err := svc.SubmitSale(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, repo.purchases, 1)
	assert.False(t, repo.purchases[0].utang)
}

func TestSubmitSaleInvalidPaymentMethod(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	payload := cashPayload()
	payload.PaymentMethod = pos.PaymentMethod("iou")
	_, err := svc.SubmitSale(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payment method")
}

func TestSubmitSaleCarriesRequestedAmount(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[20] = &fakeStock{name: "Assorted Vegetables", qty: 10, minLevel: 1}
	svc, _ := newTestService(repo)

	requested := 55.0
	payload := cashPayload()
	payload.Items = []pos.SaleItem{{ProductID: 20, Quantity: 2, UnitPrice: 55, RequestedAmount: &requested}}
	payload.Total = 110

	result, err := svc.SubmitSale(context.Background(), payload)
	require.NoError(t, err)

	sale, err := svc.GetSale(context.Background(), result.SaleID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	require.NotNil(t, sale.Items[0].RequestedAmount)
	assert.InDelta(t, 55.0, *sale.Items[0].RequestedAmount, 0.0001)
}

func TestTotalsSince(t *testing.T) {
	repo := newFakeRepo()
	repo.stock[10] = &fakeStock{name: "Canned Sardines", qty: 100, minLevel: 1}
	svc, _ := newTestService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.SubmitSale(context.Background(), cashPayload())
		require.NoError(t, err)
	}

	total, err := svc.TotalsSince(context.Background(), time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.InDelta(t, 153.00, total, 0.0001)
}
