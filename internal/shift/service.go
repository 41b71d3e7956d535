package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sari-pos/sari-pos/internal/money"
	"github.com/sari-pos/sari-pos/internal/pos"
)

// RepositoryPort abstracts shift persistence for the service.
type RepositoryPort interface {
	ActiveShift(ctx context.Context, cashierID int64, terminal string) (*Shift, error)
	GetShift(ctx context.Context, id int64) (*Shift, error)
	CreateShift(ctx context.Context, sh Shift) (int64, error)
	CloseShift(ctx context.Context, sh Shift) error
	ApplySale(ctx context.Context, shiftID int64, method pos.PaymentMethod, amount float64) error
	ApplyUtangPayment(ctx context.Context, shiftID int64, amount float64) error
	ListShifts(ctx context.Context, filter ListFilter) ([]Shift, int, error)
	StaleOpenShifts(ctx context.Context, openLongerThan time.Duration) ([]Shift, error)
}

// Publisher pushes shift changes to the realtime stream for other
// terminals. Optional; a nil publisher disables it.
type Publisher interface {
	PublishShiftUpdate(ctx context.Context, sh Shift) error
}

// Service coordinates the shift lifecycle.
type Service struct {
	repo      RepositoryPort
	publisher Publisher
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(repo RepositoryPort, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// StartShift opens a drawer session with the given opening float.
// Fails with ErrShiftAlreadyOpen when the cashier/terminal already has
// one; enforcement across concurrent terminals rests on the unique
// index in persistence, the service only checks its own view.
func (s *Service) StartShift(ctx context.Context, req StartShiftRequest) (*Shift, error) {
	if !money.IsFinite(req.OpeningCash) || req.OpeningCash < 0 {
		return nil, ErrInvalidAmount
	}

	existing, err := s.repo.ActiveShift(ctx, req.CashierID, req.Terminal)
	if err != nil && !errors.Is(err, ErrNoActiveShift) {
		return nil, fmt.Errorf("check active shift: %w", err)
	}
	if existing != nil {
		return nil, ErrShiftAlreadyOpen
	}

	sh := Shift{
		CashierID:   req.CashierID,
		Terminal:    req.Terminal,
		Status:      StatusOpen,
		StartedAt:   time.Now().UTC(),
		OpeningCash: money.RoundPrice(req.OpeningCash),
		Notes:       req.Notes,
	}
	id, err := s.repo.CreateShift(ctx, sh)
	if err != nil {
		return nil, fmt.Errorf("create shift: %w", err)
	}
	sh.ID = id

	s.publish(ctx, sh)
	return &sh, nil
}

// EndShift closes the open session, computing the cash reconciliation.
// The record is immutable afterwards.
func (s *Service) EndShift(ctx context.Context, req EndShiftRequest) (*Reconciliation, error) {
	if !money.IsFinite(req.ClosingCash) || req.ClosingCash < 0 {
		return nil, ErrInvalidAmount
	}

	sh, err := s.repo.ActiveShift(ctx, req.CashierID, req.Terminal)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	closing := money.RoundPrice(req.ClosingCash)
	sh.Status = StatusClosed
	sh.EndedAt = &now
	sh.ClosingCash = &closing
	sh.ClosingNotes = req.Notes

	if err := s.repo.CloseShift(ctx, *sh); err != nil {
		return nil, fmt.Errorf("close shift: %w", err)
	}

	s.publish(ctx, *sh)
	return &Reconciliation{
		Shift:          *sh,
		ExpectedCash:   sh.ExpectedCash(),
		CashDifference: *sh.CashDifference(),
		Classification: sh.Classification(),
	}, nil
}

// RecordSale routes a confirmed sale into the open shift's counters:
// cash into the drawer, card and mobile into credit sales, utang into
// the outstanding bucket. Utang amounts only reach expected cash once
// collected through RecordUtangPayment.
func (s *Service) RecordSale(ctx context.Context, evt pos.SaleRecordedEvent) error {
	if evt.ShiftID == 0 {
		return ErrNoActiveShift
	}
	amount := money.RoundPrice(evt.Total)
	if err := s.repo.ApplySale(ctx, evt.ShiftID, evt.PaymentMethod, amount); err != nil {
		return fmt.Errorf("apply sale to shift %d: %w", evt.ShiftID, err)
	}

	if sh, err := s.repo.GetShift(ctx, evt.ShiftID); err == nil {
		s.publish(ctx, *sh)
	}
	return nil
}

// RecordUtangPayment adds money actually collected against store
// credit to the open shift's drawer expectation.
func (s *Service) RecordUtangPayment(ctx context.Context, cashierID int64, terminal string, amount float64) (*Shift, error) {
	if !money.IsFinite(amount) || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	sh, err := s.repo.ActiveShift(ctx, cashierID, terminal)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyUtangPayment(ctx, sh.ID, money.RoundPrice(amount)); err != nil {
		return nil, fmt.Errorf("apply utang payment: %w", err)
	}

	updated, err := s.repo.GetShift(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, *updated)
	return updated, nil
}

// ActiveShiftID implements the checkout orchestrator's shift view.
func (s *Service) ActiveShiftID(ctx context.Context, cashierID int64, terminal string) (int64, bool, error) {
	sh, err := s.repo.ActiveShift(ctx, cashierID, terminal)
	if errors.Is(err, ErrNoActiveShift) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return sh.ID, true, nil
}

// ActiveShift returns the open shift for display.
func (s *Service) ActiveShift(ctx context.Context, cashierID int64, terminal string) (*Shift, error) {
	return s.repo.ActiveShift(ctx, cashierID, terminal)
}

// GetShift returns one shift record.
func (s *Service) GetShift(ctx context.Context, id int64) (*Shift, error) {
	return s.repo.GetShift(ctx, id)
}

// ListShifts returns shift history.
func (s *Service) ListShifts(ctx context.Context, filter ListFilter) ([]Shift, int, error) {
	return s.repo.ListShifts(ctx, filter)
}

// StaleOpenShifts lists shifts that have stayed open longer than the
// cutoff, for the background scan.
func (s *Service) StaleOpenShifts(ctx context.Context, openLongerThan time.Duration) ([]Shift, error) {
	return s.repo.StaleOpenShifts(ctx, openLongerThan)
}

func (s *Service) publish(ctx context.Context, sh Shift) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishShiftUpdate(ctx, sh); err != nil {
		s.logger.Warn("publish shift update", slog.Int64("shift_id", sh.ID), slog.Any("error", err))
	}
}
