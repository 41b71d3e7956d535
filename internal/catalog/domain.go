// Package catalog is the product master: lookups, search, stock levels
// and the snapshots the cart works against.
package catalog

import (
	"errors"
	"time"

	"github.com/sari-pos/sari-pos/internal/money"
	"github.com/sari-pos/sari-pos/internal/pos"
)

// Product is a catalog entry. Stock and minimum level are decimals so
// weight and volume goods can be tracked fractionally.
type Product struct {
	ID            int64            `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Barcode       *string          `json:"barcode,omitempty" db:"barcode"`
	UnitType      money.UnitType   `json:"unit_type" db:"unit_type"`
	PricingModel  pos.PricingModel `json:"pricing_model" db:"pricing_model"`
	Price         *float64         `json:"price,omitempty" db:"price"`
	CostPrice     *float64         `json:"cost_price,omitempty" db:"cost_price"`
	StockQuantity float64          `json:"stock_quantity" db:"stock_quantity"`
	MinStockLevel float64          `json:"min_stock_level" db:"min_stock_level"`
	Category      string           `json:"category" db:"category"`
	IsActive      bool             `json:"is_active" db:"is_active"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// NeedsRestock reports whether stock has fallen to the minimum level.
func (p *Product) NeedsRestock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// ProfitMargin returns the markup over cost as a percentage, zero when
// either price is missing.
func (p *Product) ProfitMargin() float64 {
	if p.CostPrice == nil || p.Price == nil || *p.CostPrice <= 0 {
		return 0
	}
	return ((*p.Price - *p.CostPrice) / *p.CostPrice) * 100
}

// Snapshot converts the catalog entry into the immutable view the cart
// holds for the duration of a transaction.
func (p *Product) Snapshot() pos.Product {
	return pos.Product{
		ID:            p.ID,
		Name:          p.Name,
		Barcode:       p.Barcode,
		UnitType:      p.UnitType,
		PricingModel:  p.PricingModel,
		BasePrice:     p.Price,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
	}
}

var (
	ErrNotFound         = errors.New("catalog: product not found")
	ErrDuplicateBarcode = errors.New("catalog: barcode already in use")
	ErrInvalidInput     = errors.New("catalog: invalid product data")
)

// CreateProductRequest adds a product to the catalog.
type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Barcode       *string  `json:"barcode,omitempty" validate:"omitempty,max=100"`
	UnitType      string   `json:"unit_type" validate:"required"`
	PricingModel  string   `json:"pricing_model" validate:"required"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	CostPrice     *float64 `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	StockQuantity float64  `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel float64  `json:"min_stock_level" validate:"gte=0"`
	Category      string   `json:"category" validate:"max=100"`
}

// UpdateProductRequest applies partial edits.
type UpdateProductRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Barcode       *string  `json:"barcode,omitempty" validate:"omitempty,max=100"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	CostPrice     *float64 `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	StockQuantity *float64 `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	MinStockLevel *float64 `json:"min_stock_level,omitempty" validate:"omitempty,gte=0"`
	Category      *string  `json:"category,omitempty" validate:"omitempty,max=100"`
}
