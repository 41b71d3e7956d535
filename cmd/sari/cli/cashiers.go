package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sari-pos/sari-pos/internal/cashiers"
)

// CashierCLI provisions drawer operators from the command line. PINs
// never land in the database unhashed.
type CashierCLI struct {
	repo *cashiers.Repository
}

// NewCashierCLI initialises the helper over an existing pool.
func NewCashierCLI(pool *pgxpool.Pool) *CashierCLI {
	return &CashierCLI{repo: cashiers.NewRepository(pool)}
}

// Add registers a cashier and returns the new id.
func (c *CashierCLI) Add(ctx context.Context, name, pin string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("cashier cli: name is required")
	}
	if len(pin) < 4 {
		return 0, errors.New("cashier cli: pin must be at least 4 digits")
	}
	hash, err := cashiers.HashPIN(pin)
	if err != nil {
		return 0, err
	}
	return c.repo.Create(ctx, name, hash)
}
