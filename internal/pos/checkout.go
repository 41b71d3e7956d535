package pos

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sari-pos/sari-pos/internal/money"
)

// CheckoutState tracks where a cart is in the checkout flow. Terminal
// states return to Idle: the orchestrator holds no state for a cart
// once its submission has resolved.
type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "Idle"
	CheckoutValidating CheckoutState = "Validating"
	CheckoutSubmitting CheckoutState = "Submitting"
	CheckoutSucceeded  CheckoutState = "Succeeded"
	CheckoutFailed     CheckoutState = "Failed"
)

// SubmitResult is what the persistence collaborator returns for a
// confirmed sale.
type SubmitResult struct {
	SaleID        int64
	ReceiptNumber string
	CreatedAt     time.Time
}

// Submitter persists a sale. The engine treats it as external: a
// returned error is surfaced verbatim and never causes local data loss.
type Submitter interface {
	SubmitSale(ctx context.Context, sale Sale) (SubmitResult, error)
}

// ShiftView exposes the one shift fact checkout needs: whether the
// cashier/terminal currently has an open shift, and which one.
type ShiftView interface {
	ActiveShiftID(ctx context.Context, cashierID int64, terminal string) (int64, bool, error)
}

// IntegrationHandler consumes the sale-recorded event after a confirmed
// submission. Counter updates on the shift are driven by this event,
// never by a side effect inside the orchestrator.
type IntegrationHandler interface {
	HandleSaleRecorded(ctx context.Context, evt SaleRecordedEvent) error
}

// Checkout validates a cart against the shift state and the chosen
// payment method, submits the sale, and clears the cart only once the
// collaborator confirms success.
type Checkout struct {
	logger    *slog.Logger
	submitter Submitter
	shifts    ShiftView
	hooks     IntegrationHandler

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewCheckout constructs the orchestrator.
func NewCheckout(logger *slog.Logger, submitter Submitter, shifts ShiftView, hooks IntegrationHandler) *Checkout {
	return &Checkout{
		logger:    logger,
		submitter: submitter,
		shifts:    shifts,
		hooks:     hooks,
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// State reports the cart's current checkout state.
func (co *Checkout) State(cart *Cart) CheckoutState {
	co.mu.Lock()
	defer co.mu.Unlock()
	if _, ok := co.inFlight[cart.Stamp()]; ok {
		return CheckoutSubmitting
	}
	return CheckoutIdle
}

// Validate evaluates every checkout precondition and returns them all
// together, or nil when the cart may be submitted.
func (co *Checkout) Validate(ctx context.Context, cart *Cart, cashierID int64, terminal string) (int64, *PreconditionError, error) {
	items := cart.Items()

	var violations []Violation
	if len(items) == 0 {
		violations = append(violations, ViolationEmptyCart)
	}

	shiftID, open, err := co.shifts.ActiveShiftID(ctx, cashierID, terminal)
	if err != nil {
		return 0, nil, err
	}
	if !open {
		violations = append(violations, ViolationNoActiveShift)
	}

	total := cart.Total()
	method := cart.PaymentMethod()

	if method == PaymentCash && cart.CashTendered() < total {
		violations = append(violations, ViolationInsufficientCash)
	}
	if method == PaymentUtang && cart.CustomerID() == nil {
		violations = append(violations, ViolationCustomerRequired)
	}
	for _, line := range items {
		if ResolveLinePrice(line).UnitPrice <= 0 {
			violations = append(violations, ViolationPriceRequired)
			break
		}
	}

	if len(violations) > 0 {
		return 0, &PreconditionError{Violations: violations}, nil
	}
	return shiftID, nil, nil
}

// Submit runs the full checkout sequence for a cart. On success the
// cart is cleared, a sale-recorded event is emitted and a receipt
// summary returned. On failure the cart is left exactly as it was so
// the operator can retry without re-entering anything.
func (co *Checkout) Submit(ctx context.Context, cart *Cart, cashierID int64, terminal string) (*Receipt, error) {
	stamp := cart.Stamp()
	if !co.begin(stamp) {
		return nil, ErrCheckoutInFlight
	}
	defer co.end(stamp)

	shiftID, precond, err := co.Validate(ctx, cart, cashierID, terminal)
	if err != nil {
		return nil, err
	}
	if precond != nil {
		return nil, precond
	}

	items := cart.Items()
	total := cart.Total()
	method := cart.PaymentMethod()
	customerID := cart.CustomerID()
	tendered := cart.CashTendered()

	sale := Sale{
		CustomerID:    customerID,
		CashierID:     cashierID,
		ShiftID:       shiftID,
		Terminal:      terminal,
		PaymentMethod: method,
		Total:         total,
	}
	if method == PaymentCash {
		t := tendered
		sale.CashTendered = &t
	}
	for _, line := range items {
		resolved := ResolveLinePrice(line)
		sale.Items = append(sale.Items, SaleItem{
			ProductID:       line.Product.ID,
			Quantity:        line.Quantity,
			UnitPrice:       resolved.UnitPrice,
			RequestedAmount: line.PriceOverride,
		})
	}

	result, err := co.submitter.SubmitSale(ctx, sale)
	if err != nil {
		co.logger.Warn("sale submission failed",
			slog.String("terminal", terminal),
			slog.Int64("cashier_id", cashierID),
			slog.Any("error", err))
		return nil, &SubmissionError{Reason: err}
	}

	evt := SaleRecordedEvent{
		SaleID:        result.SaleID,
		ShiftID:       shiftID,
		CashierID:     cashierID,
		Terminal:      terminal,
		CustomerID:    customerID,
		PaymentMethod: method,
		Total:         total,
		RecordedAt:    result.CreatedAt,
	}
	if co.hooks != nil {
		if err := co.hooks.HandleSaleRecorded(ctx, evt); err != nil {
			// The sale is already persisted; a projection failure must
			// not look like a failed checkout to the operator.
			co.logger.Error("sale recorded hook failed",
				slog.Int64("sale_id", result.SaleID),
				slog.Any("error", err))
		}
	}

	if cart.Stamp() == stamp {
		cart.Clear()
	} else {
		// Cart was abandoned while the submission was in flight. The
		// sale stands; only the local cart reset is skipped.
		co.logger.Warn("discarding checkout result for superseded cart",
			slog.Int64("sale_id", result.SaleID),
			slog.String("terminal", terminal))
	}

	receipt := &Receipt{
		SaleID:        result.SaleID,
		ReceiptNumber: result.ReceiptNumber,
		Total:         total,
		PaymentMethod: method,
		CreatedAt:     result.CreatedAt,
	}
	if method == PaymentCash {
		receipt.CashTendered = tendered
		// Never negative: validation guarantees tendered >= total.
		receipt.ChangeDue = money.RoundPrice(tendered - total)
	}
	for _, line := range items {
		resolved := ResolveLinePrice(line)
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   resolved.UnitPrice,
			BasePrice:   baseUnitPrice(line.Product),
			LineTotal:   resolved.LineTotal,
		})
	}
	return receipt, nil
}

func (co *Checkout) begin(stamp uuid.UUID) bool {
	co.mu.Lock()
	defer co.mu.Unlock()
	if _, ok := co.inFlight[stamp]; ok {
		return false
	}
	co.inFlight[stamp] = struct{}{}
	return true
}

func (co *Checkout) end(stamp uuid.UUID) {
	co.mu.Lock()
	defer co.mu.Unlock()
	delete(co.inFlight, stamp)
}
