// Package purchases records supplier restocks. Receiving a delivery
// creates a purchase ledger entry, increments stock and moves each
// product's cost price to the latest supplier cost, all in a single
// transaction.
package purchases

import (
	"errors"
	"time"
)

// Purchase is one supplier delivery received into stock.
type Purchase struct {
	ID        int64          `json:"id" db:"id"`
	Supplier  string         `json:"supplier" db:"supplier"`
	TotalCost float64        `json:"total_cost" db:"total_cost"`
	Notes     string         `json:"notes" db:"notes"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	Items     []PurchaseItem `json:"items,omitempty" db:"-"`
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	ID          int64   `json:"id" db:"id"`
	PurchaseID  int64   `json:"purchase_id" db:"purchase_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	ProductName string  `json:"product_name" db:"product_name"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	UnitCost    float64 `json:"unit_cost" db:"unit_cost"`
}

var (
	ErrNotFound       = errors.New("purchases: record not found")
	ErrEmptyPurchase  = errors.New("purchases: purchase must contain at least one item")
	ErrProductMissing = errors.New("purchases: product not found")
	ErrInvalidLine    = errors.New("purchases: quantity and unit cost must be positive")
)

// CreatePurchaseRequest is the payload for receiving a delivery.
type CreatePurchaseRequest struct {
	Supplier string              `json:"supplier" validate:"required,min=1,max=200"`
	Notes    string              `json:"notes" validate:"max=2000"`
	Items    []PurchaseLineInput `json:"items" validate:"required,min=1,dive"`
}

// PurchaseLineInput is one line of a delivery.
type PurchaseLineInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
}

// ListFilter narrows purchase history queries.
type ListFilter struct {
	Supplier *string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
