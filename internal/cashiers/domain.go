// Package cashiers holds the minimal cashier identity the drawer
// needs: who is accountable for a shift, verified by a hashed PIN.
package cashiers

import (
	"errors"
	"time"
)

// Cashier is one drawer operator.
type Cashier struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PINHash   string    `json:"-" db:"pin_hash"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound   = errors.New("cashiers: record not found")
	ErrInvalidPIN = errors.New("cashiers: invalid pin")
)
