// Package sales persists completed sales: the one collaborator the
// checkout orchestrator hands a cart to. Stock validation, the stock
// decrement, customer totals and the sale rows all commit in a single
// transaction, so a failed submission never leaves partial state.
package sales

import (
	"errors"
	"time"

	"github.com/sari-pos/sari-pos/internal/pos"
)

// Sale is the persisted record of one completed transaction.
type Sale struct {
	ID            int64             `json:"id" db:"id"`
	ReceiptNumber string            `json:"receipt_number" db:"receipt_number"`
	CustomerID    *int64            `json:"customer_id,omitempty" db:"customer_id"`
	CashierID     int64             `json:"cashier_id" db:"cashier_id"`
	ShiftID       int64             `json:"shift_id" db:"shift_id"`
	Terminal      string            `json:"terminal" db:"terminal"`
	PaymentMethod pos.PaymentMethod `json:"payment_method" db:"payment_method"`
	TotalAmount   float64           `json:"total_amount" db:"total_amount"`
	CashTendered  *float64          `json:"cash_tendered,omitempty" db:"cash_tendered"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	Items         []SaleItem        `json:"items,omitempty" db:"-"`
}

// SaleItem is one line of a persisted sale.
type SaleItem struct {
	ID              int64    `json:"id" db:"id"`
	SaleID          int64    `json:"sale_id" db:"sale_id"`
	ProductID       int64    `json:"product_id" db:"product_id"`
	ProductName     string   `json:"product_name" db:"product_name"`
	Quantity        float64  `json:"quantity" db:"quantity"`
	UnitPrice       float64  `json:"unit_price" db:"unit_price"`
	RequestedAmount *float64 `json:"requested_amount,omitempty" db:"requested_amount"`
}

var (
	ErrNotFound          = errors.New("sales: record not found")
	ErrEmptySale         = errors.New("sales: sale must contain at least one item")
	ErrProductMissing    = errors.New("sales: product not found")
	ErrInsufficientStock = errors.New("sales: insufficient stock")
)

// ListFilter narrows sale history queries.
type ListFilter struct {
	CustomerID *int64
	CashierID  *int64
	Terminal   *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
