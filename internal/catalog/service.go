package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sari-pos/sari-pos/internal/money"
	"github.com/sari-pos/sari-pos/internal/pos"
)

// RepositoryPort abstracts catalog persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	Search(ctx context.Context, query string, limit int) ([]Product, error)
	LowStock(ctx context.Context) ([]Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, int, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Deactivate(ctx context.Context, id int64) error
	Counts(ctx context.Context) (StockCounts, error)
}

// Service provides product master operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the catalog service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

const searchLimit = 15

// Lookup resolves a scanned or typed code to a product snapshot: exact
// barcode first, then id is not attempted since barcodes are the scan
// path. Missing products map to ErrNotFound.
func (s *Service) Lookup(ctx context.Context, barcode string) (*Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// Search matches products by name, barcode or category.
func (s *Service) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.repo.Search(ctx, query, searchLimit)
}

// LowStock lists products at or below their minimum level.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.repo.LowStock(ctx)
}

// List returns the active catalog.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Product, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Counts returns catalog stock health numbers.
func (s *Service) Counts(ctx context.Context) (StockCounts, error) {
	return s.repo.Counts(ctx)
}

// Create validates and inserts a product.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	unit := money.UnitType(req.UnitType)
	if !unit.Valid() {
		return nil, fmt.Errorf("%w: unknown unit type %q", ErrInvalidInput, req.UnitType)
	}
	model := pos.PricingModel(req.PricingModel)
	if !model.Valid() {
		return nil, fmt.Errorf("%w: unknown pricing model %q", ErrInvalidInput, req.PricingModel)
	}
	if model != pos.PricingVariable && req.Price == nil {
		return nil, fmt.Errorf("%w: price required for fixed pricing models", ErrInvalidInput)
	}

	p := Product{
		Name:          strings.TrimSpace(req.Name),
		Barcode:       req.Barcode,
		UnitType:      unit,
		PricingModel:  model,
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		StockQuantity: money.RoundQuantity(unit, req.StockQuantity),
		MinStockLevel: money.RoundQuantity(unit, req.MinStockLevel),
		Category:      strings.TrimSpace(req.Category),
		IsActive:      true,
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

// Update applies partial edits to a product.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Barcode != nil {
		updates["barcode"] = *req.Barcode
	}
	if req.Price != nil {
		updates["price"] = money.RoundPrice(*req.Price)
	}
	if req.CostPrice != nil {
		updates["cost_price"] = money.RoundPrice(*req.CostPrice)
	}
	if req.StockQuantity != nil {
		updates["stock_quantity"] = money.RoundQuantity(existing.UnitType, *req.StockQuantity)
	}
	if req.MinStockLevel != nil {
		updates["min_stock_level"] = money.RoundQuantity(existing.UnitType, *req.MinStockLevel)
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes a product.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
