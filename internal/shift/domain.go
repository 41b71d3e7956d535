// Package shift manages cash-drawer sessions: opening, per-sale
// counter updates, utang collections, and the cash-count
// reconciliation computed on close.
package shift

import (
	"errors"
	"time"

	"github.com/sari-pos/sari-pos/internal/money"
)

// Status enumerates shift lifecycle states.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// DifferenceClass labels the drawer count outcome. These are
// classification labels only, never error states.
type DifferenceClass string

const (
	DifferenceBalanced DifferenceClass = "balanced"
	DifferenceOver     DifferenceClass = "over"
	DifferenceShort    DifferenceClass = "short"
)

// Shift is one cash-drawer session for a cashier/terminal pair. Once
// closed it is immutable history. The local counters are a projection;
// persistence holds the authoritative record for multi-terminal
// correctness.
type Shift struct {
	ID          int64      `json:"id" db:"id"`
	CashierID   int64      `json:"cashier_id" db:"cashier_id"`
	Terminal    string     `json:"terminal" db:"terminal"`
	Status      Status     `json:"status" db:"status"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	OpeningCash float64    `json:"opening_cash" db:"opening_cash"`
	ClosingCash *float64   `json:"closing_cash,omitempty" db:"closing_cash"`

	SalesCount            int     `json:"sales_count" db:"sales_count"`
	CashSales             float64 `json:"cash_sales" db:"cash_sales"`
	CreditSales           float64 `json:"credit_sales" db:"credit_sales"`
	UtangSales            float64 `json:"utang_sales" db:"utang_sales"`
	UtangPaymentsReceived float64 `json:"utang_payments_received" db:"utang_payments_received"`

	Notes        *string `json:"notes,omitempty" db:"notes"`
	ClosingNotes *string `json:"closing_notes,omitempty" db:"closing_notes"`
}

// ExpectedCash is what the drawer should contain right now: the opening
// float plus cash sales plus utang money actually collected. Credit and
// outstanding utang sales never touch the drawer.
func (s *Shift) ExpectedCash() float64 {
	return money.RoundPrice(s.OpeningCash + s.CashSales + s.UtangPaymentsReceived)
}

// CashDifference is closing minus expected, defined only once the shift
// is closed.
func (s *Shift) CashDifference() *float64 {
	if s.ClosingCash == nil {
		return nil
	}
	diff := money.RoundPrice(*s.ClosingCash - s.ExpectedCash())
	return &diff
}

// Classification labels the closed shift's cash difference.
func (s *Shift) Classification() DifferenceClass {
	diff := s.CashDifference()
	switch {
	case diff == nil || *diff == 0:
		return DifferenceBalanced
	case *diff > 0:
		return DifferenceOver
	default:
		return DifferenceShort
	}
}

// Shift state errors. Raised synchronously with no side effects.
var (
	ErrShiftAlreadyOpen = errors.New("shift: a shift is already open for this cashier and terminal")
	ErrNoActiveShift    = errors.New("shift: no open shift for this cashier and terminal")
	ErrNotFound         = errors.New("shift: record not found")
	ErrInvalidAmount    = errors.New("shift: amount must be a finite non-negative number")
)

// StartShiftRequest opens a drawer session.
type StartShiftRequest struct {
	CashierID   int64   `json:"cashier_id" validate:"required,gt=0"`
	Terminal    string  `json:"terminal" validate:"required,max=50"`
	OpeningCash float64 `json:"opening_cash" validate:"gte=0"`
	Notes       *string `json:"notes,omitempty"`
}

// EndShiftRequest closes the open drawer session.
type EndShiftRequest struct {
	CashierID   int64   `json:"cashier_id" validate:"required,gt=0"`
	Terminal    string  `json:"terminal" validate:"required,max=50"`
	ClosingCash float64 `json:"closing_cash" validate:"gte=0"`
	Notes       *string `json:"notes,omitempty"`
}

// Reconciliation is the summary handed back when a shift closes.
type Reconciliation struct {
	Shift          Shift           `json:"shift"`
	ExpectedCash   float64         `json:"expected_cash"`
	CashDifference float64         `json:"cash_difference"`
	Classification DifferenceClass `json:"classification"`
}

// ListFilter narrows shift history queries.
type ListFilter struct {
	CashierID *int64
	Terminal  *string
	Status    *Status
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
