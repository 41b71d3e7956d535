package purchases

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProduct struct {
	name     string
	qty      float64
	cost     float64
	inactive bool
}

type fakeRepo struct {
	products     map[int64]*fakeProduct
	purchases    map[int64]*Purchase
	nextPurchase int64
	nextItem     int64
	txErr        error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:  make(map[int64]*fakeProduct),
		purchases: make(map[int64]*Purchase),
	}
}

// WithTx snapshots state up front and restores it when fn fails, so the
// fake behaves like a rolled-back transaction.
func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.txErr != nil {
		return r.txErr
	}
	productsBefore := make(map[int64]*fakeProduct, len(r.products))
	for id, p := range r.products {
		cp := *p
		productsBefore[id] = &cp
	}
	purchasesBefore := make(map[int64]*Purchase, len(r.purchases))
	for id, p := range r.purchases {
		cp := *p
		purchasesBefore[id] = &cp
	}
	nextPurchase, nextItem := r.nextPurchase, r.nextItem

	if err := fn(ctx, (*fakeTx)(r)); err != nil {
		r.products = productsBefore
		r.purchases = purchasesBefore
		r.nextPurchase, r.nextItem = nextPurchase, nextItem
		return err
	}
	return nil
}

func (r *fakeRepo) GetPurchase(ctx context.Context, id int64) (*Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range r.purchases {
		out = append(out, *p)
	}
	return out, len(out), nil
}

type fakeTx fakeRepo

func (t *fakeTx) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	t.nextPurchase++
	purchase.ID = t.nextPurchase
	t.purchases[purchase.ID] = &purchase
	return purchase.ID, nil
}

func (t *fakeTx) InsertPurchaseItem(ctx context.Context, item PurchaseItem) (int64, error) {
	t.nextItem++
	item.ID = t.nextItem
	purchase := t.purchases[item.PurchaseID]
	purchase.Items = append(purchase.Items, item)
	return item.ID, nil
}

func (t *fakeTx) ReceiveStock(ctx context.Context, productID int64, qty, unitCost float64) (ReceivedProduct, error) {
	p, ok := t.products[productID]
	if !ok || p.inactive {
		return ReceivedProduct{}, ErrProductMissing
	}
	p.qty += qty
	p.cost = unitCost
	return ReceivedProduct{Name: p.name, StockQuantity: p.qty}, nil
}

type captureStream struct {
	updates []stockUpdate
	err     error
}

type stockUpdate struct {
	productID int64
	stock     float64
}

func (p *captureStream) PublishInventoryUpdate(ctx context.Context, productID int64, stock float64) error {
	if p.err != nil {
		return p.err
	}
	p.updates = append(p.updates, stockUpdate{productID, stock})
	return nil
}

func newTestService(repo *fakeRepo) (*Service, *captureStream) {
	pub := &captureStream{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, pub, logger)
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC) }
	return svc, pub
}

func sardinesDelivery() CreatePurchaseRequest {
	return CreatePurchaseRequest{
		Supplier: "Metro Wholesale",
		Notes:    "weekly restock",
		Items: []PurchaseLineInput{
			{ProductID: 10, Quantity: 24, UnitCost: 18.75},
			{ProductID: 11, Quantity: 10, UnitCost: 42.00},
		},
	}
}

func TestReceivePurchase(t *testing.T) {
	repo := newFakeRepo()
	repo.products[10] = &fakeProduct{name: "Canned Sardines", qty: 6, cost: 17.50}
	repo.products[11] = &fakeProduct{name: "Cooking Oil 1L", qty: 2, cost: 40.00}
	svc, pub := newTestService(repo)

	record, err := svc.ReceivePurchase(context.Background(), sardinesDelivery())
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.ID)
	assert.Equal(t, "Metro Wholesale", record.Supplier)
	// 24 * 18.75 + 10 * 42.00
	assert.InDelta(t, 870.00, record.TotalCost, 0.0001)
	require.Len(t, record.Items, 2)
	assert.Equal(t, "Canned Sardines", record.Items[0].ProductName)

	assert.InDelta(t, 30.0, repo.products[10].qty, 0.0001)
	assert.InDelta(t, 18.75, repo.products[10].cost, 0.0001)
	assert.InDelta(t, 12.0, repo.products[11].qty, 0.0001)
	assert.InDelta(t, 42.00, repo.products[11].cost, 0.0001)

	require.Len(t, pub.updates, 2)
	assert.Equal(t, int64(10), pub.updates[0].productID)
	assert.InDelta(t, 30.0, pub.updates[0].stock, 0.0001)
}

func TestReceivePurchaseRejectsEmpty(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	_, err := svc.ReceivePurchase(context.Background(), CreatePurchaseRequest{Supplier: "Metro Wholesale"})
	require.ErrorIs(t, err, ErrEmptyPurchase)
}

func TestReceivePurchaseRejectsBadLines(t *testing.T) {
	repo := newFakeRepo()
	repo.products[10] = &fakeProduct{name: "Canned Sardines", qty: 6}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	bad := []PurchaseLineInput{
		{ProductID: 10, Quantity: 0, UnitCost: 18.75},
		{ProductID: 10, Quantity: -5, UnitCost: 18.75},
		{ProductID: 10, Quantity: 2, UnitCost: -1},
		{ProductID: 10, Quantity: math.NaN(), UnitCost: 18.75},
	}
	for _, line := range bad {
		_, err := svc.ReceivePurchase(ctx, CreatePurchaseRequest{
			Supplier: "Metro Wholesale",
			Items:    []PurchaseLineInput{line},
		})
		require.ErrorIs(t, err, ErrInvalidLine)
	}
	assert.InDelta(t, 6.0, repo.products[10].qty, 0.0001)
}

func TestReceivePurchaseUnknownProductRollsBack(t *testing.T) {
	repo := newFakeRepo()
	repo.products[10] = &fakeProduct{name: "Canned Sardines", qty: 6, cost: 17.50}
	svc, pub := newTestService(repo)

	req := CreatePurchaseRequest{
		Supplier: "Metro Wholesale",
		Items: []PurchaseLineInput{
			{ProductID: 10, Quantity: 24, UnitCost: 18.75},
			{ProductID: 99, Quantity: 10, UnitCost: 42.00},
		},
	}
	_, err := svc.ReceivePurchase(context.Background(), req)
	require.ErrorIs(t, err, ErrProductMissing)

	// The whole delivery rolled back, first line included.
	assert.InDelta(t, 6.0, repo.products[10].qty, 0.0001)
	assert.InDelta(t, 17.50, repo.products[10].cost, 0.0001)
	assert.Empty(t, repo.purchases)
	assert.Empty(t, pub.updates)
}

func TestReceivePurchaseStreamFailureStillCommits(t *testing.T) {
	repo := newFakeRepo()
	repo.products[10] = &fakeProduct{name: "Canned Sardines", qty: 6}
	svc, pub := newTestService(repo)
	pub.err = context.DeadlineExceeded

	record, err := svc.ReceivePurchase(context.Background(), CreatePurchaseRequest{
		Supplier: "Metro Wholesale",
		Items:    []PurchaseLineInput{{ProductID: 10, Quantity: 24, UnitCost: 18.75}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, repo.products[10].qty, 0.0001)
	assert.NotZero(t, record.ID)
}
