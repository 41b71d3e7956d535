package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed customer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, phone, email, total_purchases, utang_balance, created_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.TotalPurchases, &c.UtangBalance, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns one customer by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: query by id: %w", err)
	}
	return c, nil
}

// List returns customers ordered by name, optionally filtered by a
// name/phone search term.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%'`
		args = append(args, search)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + customerColumns + ` FROM customers` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("customers: scan: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, total, rows.Err()
}

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, phone, email)
		VALUES ($1, $2, $3) RETURNING id`, c.Name, c.Phone, c.Email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("customers: insert: %w", err)
	}
	return id, nil
}

// Update applies field updates.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := ""
	args := []any{id}
	idx := 2
	for column, value := range updates {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", column, idx)
		args = append(args, value)
		idx++
	}
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("customers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyUtangPayment reduces the outstanding balance. The guard in the
// WHERE clause keeps the balance from going negative under concurrent
// payments.
func (r *Repository) ApplyUtangPayment(ctx context.Context, id int64, amount float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers
		SET utang_balance = utang_balance - $2
		WHERE id = $1 AND utang_balance >= $2`, id, amount)
	if err != nil {
		return fmt.Errorf("customers: apply utang payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentExceeds
	}
	return nil
}
