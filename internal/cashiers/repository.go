package cashiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed cashier persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one active cashier.
func (r *Repository) Get(ctx context.Context, id int64) (*Cashier, error) {
	var c Cashier
	err := r.pool.QueryRow(ctx, `SELECT id, name, pin_hash, is_active, created_at
		FROM cashiers WHERE id = $1 AND is_active`, id).
		Scan(&c.ID, &c.Name, &c.PINHash, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cashiers: query by id: %w", err)
	}
	return &c, nil
}

// Create inserts a cashier and returns the new id.
func (r *Repository) Create(ctx context.Context, name, pinHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO cashiers (name, pin_hash, is_active, created_at)
		VALUES ($1, $2, TRUE, NOW()) RETURNING id`, name, pinHash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("cashiers: insert: %w", err)
	}
	return id, nil
}
