package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sari-pos/sari-pos/internal/money"
)

// RepositoryPort abstracts customer persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	ApplyUtangPayment(ctx context.Context, id int64, amount float64) error
}

// DrawerPort routes a collected utang payment into the open shift's
// drawer expectation.
type DrawerPort interface {
	ApplyUtangPayment(ctx context.Context, cashierID int64, terminal string, amount float64) error
}

// Service provides customer ledger operations.
type Service struct {
	repo   RepositoryPort
	drawer DrawerPort
}

// NewService constructs the customer service.
func NewService(repo RepositoryPort, drawer DrawerPort) *Service {
	return &Service{repo: repo, drawer: drawer}
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers, optionally filtered.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), limit, offset)
}

// Create registers a customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("customers: name is required")
	}
	c := Customer{Name: name, Phone: req.Phone, Email: req.Email}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update applies partial edits to a customer.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// RecordUtangPayment collects money against a customer's store credit.
// The amount enters the shift drawer before the balance is reduced, so
// a payment rejected by the drawer leaves the customer untouched. The
// repository guard against overpaying still holds under concurrent
// payments.
func (s *Service) RecordUtangPayment(ctx context.Context, customerID int64, req UtangPaymentRequest) (*Customer, error) {
	if !money.IsFinite(req.Amount) || req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	amount := money.RoundPrice(req.Amount)

	customer, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if amount > customer.UtangBalance {
		return nil, ErrPaymentExceeds
	}
	if s.drawer != nil {
		if err := s.drawer.ApplyUtangPayment(ctx, req.CashierID, req.Terminal, amount); err != nil {
			return nil, fmt.Errorf("route payment to shift: %w", err)
		}
	}
	if err := s.repo.ApplyUtangPayment(ctx, customerID, amount); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, customerID)
}
