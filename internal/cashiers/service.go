package cashiers

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Repository abstracts cashier lookups.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Cashier, error)
}

// Service verifies cashier identity for drawer operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the cashier service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// VerifyPIN checks a cashier's drawer PIN. A missing or inactive
// cashier reports the same error as a wrong PIN.
func (s *Service) VerifyPIN(ctx context.Context, cashierID int64, pin string) (*Cashier, error) {
	c, err := s.repo.Get(ctx, cashierID)
	if err != nil {
		return nil, ErrInvalidPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PINHash), []byte(pin)); err != nil {
		return nil, ErrInvalidPIN
	}
	return c, nil
}

// HashPIN produces the stored form of a drawer PIN.
func HashPIN(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
