package shift

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sari-pos/sari-pos/internal/pos"
)

type memoryRepo struct {
	shifts map[int64]*Shift
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{shifts: make(map[int64]*Shift)}
}

func (r *memoryRepo) ActiveShift(ctx context.Context, cashierID int64, terminal string) (*Shift, error) {
	for _, sh := range r.shifts {
		if sh.CashierID == cashierID && sh.Terminal == terminal && sh.Status == StatusOpen {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, ErrNoActiveShift
}

func (r *memoryRepo) GetShift(ctx context.Context, id int64) (*Shift, error) {
	sh, ok := r.shifts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (r *memoryRepo) CreateShift(ctx context.Context, sh Shift) (int64, error) {
	for _, existing := range r.shifts {
		if existing.CashierID == sh.CashierID && existing.Terminal == sh.Terminal && existing.Status == StatusOpen {
			return 0, ErrShiftAlreadyOpen
		}
	}
	r.nextID++
	sh.ID = r.nextID
	r.shifts[sh.ID] = &sh
	return sh.ID, nil
}

func (r *memoryRepo) CloseShift(ctx context.Context, sh Shift) error {
	existing, ok := r.shifts[sh.ID]
	if !ok || existing.Status != StatusOpen {
		return ErrNoActiveShift
	}
	existing.Status = StatusClosed
	existing.EndedAt = sh.EndedAt
	existing.ClosingCash = sh.ClosingCash
	existing.ClosingNotes = sh.ClosingNotes
	return nil
}

func (r *memoryRepo) ApplySale(ctx context.Context, shiftID int64, method pos.PaymentMethod, amount float64) error {
	sh, ok := r.shifts[shiftID]
	if !ok || sh.Status != StatusOpen {
		return ErrNoActiveShift
	}
	sh.SalesCount++
	switch method {
	case pos.PaymentCash:
		sh.CashSales += amount
	case pos.PaymentUtang:
		sh.UtangSales += amount
	default:
		sh.CreditSales += amount
	}
	return nil
}

func (r *memoryRepo) ApplyUtangPayment(ctx context.Context, shiftID int64, amount float64) error {
	sh, ok := r.shifts[shiftID]
	if !ok || sh.Status != StatusOpen {
		return ErrNoActiveShift
	}
	sh.UtangPaymentsReceived += amount
	return nil
}

func (r *memoryRepo) ListShifts(ctx context.Context, filter ListFilter) ([]Shift, int, error) {
	var out []Shift
	for _, sh := range r.shifts {
		out = append(out, *sh)
	}
	return out, len(out), nil
}

func (r *memoryRepo) StaleOpenShifts(ctx context.Context, openLongerThan time.Duration) ([]Shift, error) {
	cutoff := time.Now().UTC().Add(-openLongerThan)
	var out []Shift
	for _, sh := range r.shifts {
		if sh.Status == StatusOpen && sh.StartedAt.Before(cutoff) {
			out = append(out, *sh)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	updates []Shift
}

func (p *recordingPublisher) PublishShiftUpdate(ctx context.Context, sh Shift) error {
	p.updates = append(p.updates, sh)
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, pub, logger), pub
}

func TestStartShift(t *testing.T) {
	svc, pub := newTestService(newMemoryRepo())
	ctx := context.Background()

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, sh.Status)
	assert.InDelta(t, 500.0, sh.OpeningCash, 0.0001)
	require.Len(t, pub.updates, 1)
}

func TestStartShiftRejectsSecondOpen(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)

	_, err = svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 300})
	require.ErrorIs(t, err, ErrShiftAlreadyOpen)
}

func TestStartShiftSameCashierDifferentTerminal(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)
	_, err = svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-2", OpeningCash: 200})
	require.NoError(t, err)
}

func TestStartShiftRejectsNegativeFloat(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	_, err := svc.StartShift(context.Background(), StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: -5})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRecordSaleRoutesByPaymentMethod(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)

	sales := []struct {
		method pos.PaymentMethod
		total  float64
	}{
		{pos.PaymentCash, 120},
		{pos.PaymentCash, 80.50},
		{pos.PaymentCard, 300},
		{pos.PaymentMobile, 150},
		{pos.PaymentUtang, 60},
	}
	for _, s := range sales {
		require.NoError(t, svc.RecordSale(ctx, pos.SaleRecordedEvent{
			ShiftID:       sh.ID,
			PaymentMethod: s.method,
			Total:         s.total,
		}))
	}

	got, err := svc.GetShift(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.SalesCount)
	assert.InDelta(t, 200.50, got.CashSales, 0.0001)
	assert.InDelta(t, 450.0, got.CreditSales, 0.0001)
	assert.InDelta(t, 60.0, got.UtangSales, 0.0001)

	// Only cash reaches the drawer expectation.
	assert.InDelta(t, 700.50, got.ExpectedCash(), 0.0001)
}

func TestRecordSaleWithoutShiftFails(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	err := svc.RecordSale(context.Background(), pos.SaleRecordedEvent{PaymentMethod: pos.PaymentCash, Total: 10})
	require.ErrorIs(t, err, ErrNoActiveShift)
}

func TestRecordUtangPaymentRaisesExpectedCash(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 100})
	require.NoError(t, err)

	updated, err := svc.RecordUtangPayment(ctx, 1, "till-1", 75.25)
	require.NoError(t, err)
	assert.Equal(t, sh.ID, updated.ID)
	assert.InDelta(t, 75.25, updated.UtangPaymentsReceived, 0.0001)
	assert.InDelta(t, 175.25, updated.ExpectedCash(), 0.0001)
}

func TestRecordUtangPaymentRejectsNonPositive(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	_, err := svc.RecordUtangPayment(context.Background(), 1, "till-1", 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEndShiftBalanced(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)
	require.NoError(t, svc.RecordSale(ctx, pos.SaleRecordedEvent{ShiftID: sh.ID, PaymentMethod: pos.PaymentCash, Total: 250}))

	recon, err := svc.EndShift(ctx, EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 750})
	require.NoError(t, err)
	assert.InDelta(t, 750.0, recon.ExpectedCash, 0.0001)
	assert.Zero(t, recon.CashDifference)
	assert.Equal(t, DifferenceBalanced, recon.Classification)
	assert.Equal(t, StatusClosed, recon.Shift.Status)
}

func TestEndShiftShortAndOver(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(newMemoryRepo())
	_, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)
	recon, err := svc.EndShift(ctx, EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 480})
	require.NoError(t, err)
	assert.InDelta(t, -20.0, recon.CashDifference, 0.0001)
	assert.Equal(t, DifferenceShort, recon.Classification)

	svc2, _ := newTestService(newMemoryRepo())
	_, err = svc2.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)
	recon, err = svc2.EndShift(ctx, EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 510.75})
	require.NoError(t, err)
	assert.InDelta(t, 10.75, recon.CashDifference, 0.0001)
	assert.Equal(t, DifferenceOver, recon.Classification)
}

func TestEndShiftUtangSalesExcludedFromExpectedCash(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 100})
	require.NoError(t, err)
	require.NoError(t, svc.RecordSale(ctx, pos.SaleRecordedEvent{ShiftID: sh.ID, PaymentMethod: pos.PaymentUtang, Total: 200}))
	_, err = svc.RecordUtangPayment(ctx, 1, "till-1", 50)
	require.NoError(t, err)

	recon, err := svc.EndShift(ctx, EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 150})
	require.NoError(t, err)
	// 100 opening + 50 collected; the 200 utang sale stays outstanding.
	assert.InDelta(t, 150.0, recon.ExpectedCash, 0.0001)
	assert.Equal(t, DifferenceBalanced, recon.Classification)
}

func TestEndShiftWithoutOpenShift(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	_, err := svc.EndShift(context.Background(), EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 100})
	require.ErrorIs(t, err, ErrNoActiveShift)
}

func TestClosedShiftIsImmutable(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 500})
	require.NoError(t, err)
	_, err = svc.EndShift(ctx, EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 500})
	require.NoError(t, err)

	err = svc.RecordSale(ctx, pos.SaleRecordedEvent{ShiftID: sh.ID, PaymentMethod: pos.PaymentCash, Total: 10})
	require.ErrorIs(t, err, ErrNoActiveShift)
	_, err = svc.EndShift(ctx, EndShiftRequest{CashierID: 1, Terminal: "till-1", ClosingCash: 600})
	require.ErrorIs(t, err, ErrNoActiveShift)
}

func TestActiveShiftIDForCheckout(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()

	id, open, err := svc.ActiveShiftID(ctx, 1, "till-1")
	require.NoError(t, err)
	assert.False(t, open)
	assert.Zero(t, id)

	sh, err := svc.StartShift(ctx, StartShiftRequest{CashierID: 1, Terminal: "till-1", OpeningCash: 0})
	require.NoError(t, err)

	id, open, err = svc.ActiveShiftID(ctx, 1, "till-1")
	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, sh.ID, id)
}
