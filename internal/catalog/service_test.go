package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sari-pos/sari-pos/internal/money"
	"github.com/sari-pos/sari-pos/internal/pos"
)

type memoryRepo struct {
	products map[int64]*Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]*Product)}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Product, error) {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	for _, p := range r.products {
		if p.IsActive && p.Barcode != nil && *p.Barcode == barcode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if !p.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) ||
			strings.EqualFold(p.Category, query) {
			out = append(out, *p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) LowStock(ctx context.Context) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.IsActive && p.NeedsRestock() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, p Product) (int64, error) {
	if p.Barcode != nil {
		for _, existing := range r.products {
			if existing.Barcode != nil && *existing.Barcode == *p.Barcode {
				return 0, ErrDuplicateBarcode
			}
		}
	}
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = &p
	return p.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	for col, val := range updates {
		switch col {
		case "name":
			p.Name = val.(string)
		case "barcode":
			bc := val.(string)
			p.Barcode = &bc
		case "price":
			price := val.(float64)
			p.Price = &price
		case "cost_price":
			cost := val.(float64)
			p.CostPrice = &cost
		case "stock_quantity":
			p.StockQuantity = val.(float64)
		case "min_stock_level":
			p.MinStockLevel = val.(float64)
		case "category":
			p.Category = val.(string)
		}
	}
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (r *memoryRepo) Counts(ctx context.Context) (StockCounts, error) {
	var counts StockCounts
	for _, p := range r.products {
		if !p.IsActive {
			continue
		}
		counts.TotalProducts++
		if p.NeedsRestock() {
			counts.LowStock++
		}
		if p.StockQuantity <= 0 {
			counts.OutOfStock++
		}
	}
	return counts, nil
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func sardinesRequest() CreateProductRequest {
	return CreateProductRequest{
		Name:          "Canned Sardines",
		Barcode:       strPtr("4800092551234"),
		UnitType:      "piece",
		PricingModel:  "fixed_per_unit",
		Price:         floatPtr(25.50),
		CostPrice:     floatPtr(21.00),
		StockQuantity: 24,
		MinStockLevel: 6,
		Category:      "canned goods",
	}
}

func TestCreateProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.Create(context.Background(), sardinesRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, money.UnitPiece, p.UnitType)
	assert.Equal(t, pos.PricingFixedPerUnit, p.PricingModel)
	assert.True(t, p.IsActive)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	req := sardinesRequest()
	req.Name = "   "
	_, err := svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = sardinesRequest()
	req.UnitType = "sack"
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = sardinesRequest()
	req.PricingModel = "auction"
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = sardinesRequest()
	req.Price = nil
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateVariablePricedWithoutPrice(t *testing.T) {
	svc := NewService(newMemoryRepo())

	req := CreateProductRequest{
		Name:          "Assorted Vegetables",
		UnitType:      "kg",
		PricingModel:  "variable",
		StockQuantity: 5,
		Category:      "produce",
	}
	p, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, p.Price)
}

func TestCreateRoundsStockToUnitPrecision(t *testing.T) {
	svc := NewService(newMemoryRepo())

	req := sardinesRequest()
	req.StockQuantity = 24.7
	p, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	// Piece goods hold whole-unit stock.
	assert.InDelta(t, 25.0, p.StockQuantity, 0.0001)
}

func TestCreateDuplicateBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)

	req := sardinesRequest()
	req.Name = "Canned Sardines Green"
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrDuplicateBarcode)
}

func TestLookupByBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)

	p, err := svc.Lookup(ctx, " 4800092551234 ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)

	_, err = svc.Lookup(ctx, "0000000000000")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Lookup(ctx, "   ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchBlankQueryReturnsNothing(t *testing.T) {
	svc := NewService(newMemoryRepo())

	results, err := svc.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpdateProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateProductRequest{
		Price:         floatPtr(26.999),
		StockQuantity: floatPtr(30.2),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Price)
	assert.InDelta(t, 27.00, *updated.Price, 0.0001)
	assert.InDelta(t, 30.0, updated.StockQuantity, 0.0001)
}

func TestUpdateNoFieldsIsNoop(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateProductRequest{})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
}

func TestUpdateMissingProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Update(context.Background(), 99, UpdateProductRequest{Price: floatPtr(10)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateHidesProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Lookup(ctx, "4800092551234")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotTranslatesMissingProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.SnapshotByID(ctx, 42)
	require.ErrorIs(t, err, pos.ErrProductUnavailable)
	_, err = svc.SnapshotByBarcode(ctx, "4800092551234")
	require.ErrorIs(t, err, pos.ErrProductUnavailable)
}

func TestSnapshotCarriesPricingFields(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)

	snap, err := svc.SnapshotByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, snap.ID)
	assert.Equal(t, pos.PricingFixedPerUnit, snap.PricingModel)
	require.NotNil(t, snap.BasePrice)
	assert.InDelta(t, 25.50, *snap.BasePrice, 0.0001)
	assert.InDelta(t, 24.0, snap.StockQuantity, 0.0001)
}

func TestLowStockAndCounts(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, sardinesRequest())
	require.NoError(t, err)

	low := sardinesRequest()
	low.Name = "Instant Coffee Sachet"
	low.Barcode = strPtr("4800092559999")
	low.StockQuantity = 3
	low.MinStockLevel = 10
	_, err = svc.Create(ctx, low)
	require.NoError(t, err)

	flagged, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "Instant Coffee Sachet", flagged[0].Name)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.TotalProducts)
	assert.Equal(t, 1, counts.LowStock)
}
