// Package customers keeps the customer ledger: contact details,
// lifetime purchase totals, and outstanding utang balances.
package customers

import (
	"errors"
	"time"
)

// Customer is one customer record. UtangBalance is the store credit
// still owed; TotalPurchases accumulates every recorded sale.
type Customer struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	Email          *string   `json:"email,omitempty" db:"email"`
	TotalPurchases float64   `json:"total_purchases" db:"total_purchases"`
	UtangBalance   float64   `json:"utang_balance" db:"utang_balance"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound       = errors.New("customers: record not found")
	ErrInvalidAmount  = errors.New("customers: amount must be a positive finite number")
	ErrPaymentExceeds = errors.New("customers: payment exceeds outstanding utang balance")
)

// CreateCustomerRequest registers a customer.
type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateCustomerRequest applies partial edits.
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UtangPaymentRequest records money collected against store credit.
// The payment lands in the open shift's drawer expectation.
type UtangPaymentRequest struct {
	CashierID int64   `json:"cashier_id" validate:"required,gt=0"`
	Terminal  string  `json:"terminal" validate:"required,max=50"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}
