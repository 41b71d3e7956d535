// Package pos implements the point-of-sale transaction engine: the
// per-terminal cart state, pricing resolution, and the checkout
// orchestration that turns a cart into a persisted sale.
package pos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sari-pos/sari-pos/internal/money"
)

// PricingModel governs how a product's unit price is determined.
type PricingModel string

const (
	// PricingFixedPerUnit charges the listed price per piece.
	PricingFixedPerUnit PricingModel = "fixed_per_unit"
	// PricingFixedPerWeight charges the listed price per weight or volume unit.
	PricingFixedPerWeight PricingModel = "fixed_per_weight"
	// PricingVariable lets the operator set the per-unit price at sale time.
	PricingVariable PricingModel = "variable"
)

// Valid reports whether m is a supported pricing model.
func (m PricingModel) Valid() bool {
	switch m {
	case PricingFixedPerUnit, PricingFixedPerWeight, PricingVariable:
		return true
	}
	return false
}

// PaymentMethod is the closed set of accepted tender types.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
	// PaymentUtang records a store-credit sale against a customer,
	// collected later via separate payments.
	PaymentUtang PaymentMethod = "utang"
)

// Valid reports whether p is a supported payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentMobile, PaymentUtang:
		return true
	}
	return false
}

// Product is the immutable catalog snapshot the cart works against.
// Stock and price reflect the moment the product was fetched.
type Product struct {
	ID            int64
	Name          string
	Barcode       *string
	UnitType      money.UnitType
	PricingModel  PricingModel
	BasePrice     *float64
	StockQuantity float64
	MinStockLevel float64
}

// CartItem is one line of a cart: a product snapshot, the quantity
// being sold, and an optional operator price override (variable
// pricing only, per-unit, floored at the base price).
type CartItem struct {
	Product       Product
	Quantity      float64
	UnitPrice     float64
	PriceOverride *float64
}

// LinePrice is the resolved effective price of a cart line.
type LinePrice struct {
	UnitPrice float64
	LineTotal float64
}

// Sale is the payload handed to the persistence collaborator on
// checkout. The engine keeps no reference to it after submission.
type Sale struct {
	CustomerID    *int64
	CashierID     int64
	ShiftID       int64
	Terminal      string
	PaymentMethod PaymentMethod
	Total         float64
	CashTendered  *float64
	Items         []SaleItem
}

// SaleItem mirrors one cart line inside a Sale payload.
type SaleItem struct {
	ProductID       int64
	Quantity        float64
	UnitPrice       float64
	RequestedAmount *float64
}

// Receipt is the display summary produced after a confirmed checkout.
type Receipt struct {
	SaleID        int64
	ReceiptNumber string
	Lines         []ReceiptLine
	Total         float64
	PaymentMethod PaymentMethod
	CashTendered  float64
	ChangeDue     float64
	CreatedAt     time.Time
}

// ReceiptLine pairs the charged price with the listed base price so the
// receipt can show overrides explicitly.
type ReceiptLine struct {
	ProductID   int64
	ProductName string
	Quantity    float64
	UnitPrice   float64
	BasePrice   float64
	LineTotal   float64
}

// Validation errors rejected at the mutation boundary. Prior state is
// always retained; no partial application.
var (
	ErrInvalidQuantity    = errors.New("pos: quantity must be greater than zero")
	ErrInvalidPrice       = errors.New("pos: price must be a finite non-negative number")
	ErrPriceBelowMinimum  = errors.New("pos: price override below the listed price")
	ErrOverrideNotAllowed = errors.New("pos: price override only allowed for variable pricing")
	ErrItemNotFound       = errors.New("pos: product not in cart")
	ErrProductUnavailable = errors.New("pos: product not found or inactive")
	ErrInvalidPayment     = errors.New("pos: unknown payment method")
	ErrCheckoutInFlight   = errors.New("pos: checkout already submitting")
)

// Violation identifies one failed checkout precondition.
type Violation string

const (
	ViolationEmptyCart        Violation = "EmptyCart"
	ViolationNoActiveShift    Violation = "NoActiveShift"
	ViolationInsufficientCash Violation = "InsufficientCash"
	ViolationCustomerRequired Violation = "CustomerRequired"
	ViolationPriceRequired    Violation = "PriceRequired"
)

// PreconditionError aggregates every violated checkout precondition so
// the operator sees all outstanding issues at once, not just the first.
type PreconditionError struct {
	Violations []Violation
}

func (e *PreconditionError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = string(v)
	}
	return "pos: checkout blocked: " + strings.Join(parts, ", ")
}

// Has reports whether the error carries the given violation.
func (e *PreconditionError) Has(v Violation) bool {
	for _, got := range e.Violations {
		if got == v {
			return true
		}
	}
	return false
}

// SubmissionError wraps a persistence collaborator failure verbatim.
// Recoverable: the cart is left intact so the operator can retry.
type SubmissionError struct {
	Reason error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("pos: sale submission failed: %v", e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Reason }

// SaleRecordedEvent is emitted after a sale is confirmed persisted. The
// shift lifecycle manager consumes it to update its counters; the
// orchestrator never mutates shift state directly.
type SaleRecordedEvent struct {
	SaleID        int64
	ShiftID       int64
	CashierID     int64
	Terminal      string
	CustomerID    *int64
	PaymentMethod PaymentMethod
	Total         float64
	RecordedAt    time.Time
}
