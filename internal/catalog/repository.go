package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed product persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, barcode, unit_type, pricing_model, price, cost_price,
	stock_quantity, min_stock_level, category, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Barcode, &p.UnitType, &p.PricingModel, &p.Price, &p.CostPrice,
		&p.StockQuantity, &p.MinStockLevel, &p.Category, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns one active product by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products
		WHERE id = $1 AND is_active`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: query by id: %w", err)
	}
	return p, nil
}

// GetByBarcode returns one active product by its scanned barcode.
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products
		WHERE barcode = $1 AND is_active`, barcode)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: query by barcode: %w", err)
	}
	return p, nil
}

// Search matches name, barcode or category, capped for performance.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 15
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE is_active AND (name ILIKE '%' || $1 || '%'
			OR barcode ILIKE '%' || $1 || '%'
			OR category ILIKE '%' || $1 || '%')
		ORDER BY name LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// LowStock lists active products at or below their minimum level.
func (r *Repository) LowStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE is_active AND stock_quantity <= min_stock_level
		ORDER BY stock_quantity`)
	if err != nil {
		return nil, fmt.Errorf("catalog: low stock: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// List returns active products ordered by name.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE is_active ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()
	products, err := collectProducts(rows)
	return products, total, err
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products
		(name, barcode, unit_type, pricing_model, price, cost_price,
		 stock_quantity, min_stock_level, category, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE) RETURNING id`,
		p.Name, p.Barcode, p.UnitType, p.PricingModel, p.Price, p.CostPrice,
		p.StockQuantity, p.MinStockLevel, p.Category,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateBarcode
		}
		return 0, fmt.Errorf("catalog: insert: %w", err)
	}
	return id, nil
}

// Update applies field updates to a product.
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
	tag, err := r.pool.Exec(ctx, `UPDATE products SET `+set+`, updated_at = NOW()
		WHERE id = $1 AND is_active`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateBarcode
		}
		return fmt.Errorf("catalog: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a product; sale history keeps referencing it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("catalog: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StockCounts summarises catalog stock health.
type StockCounts struct {
	TotalProducts int `json:"total_products"`
	LowStock      int `json:"low_stock"`
	OutOfStock    int `json:"out_of_stock"`
}

// Counts returns catalog stock health numbers in one query.
func (r *Repository) Counts(ctx context.Context) (StockCounts, error) {
	var c StockCounts
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE stock_quantity <= min_stock_level),
			COUNT(*) FILTER (WHERE stock_quantity = 0)
		FROM products WHERE is_active`).
		Scan(&c.TotalProducts, &c.LowStock, &c.OutOfStock)
	if err != nil {
		return StockCounts{}, fmt.Errorf("catalog: counts: %w", err)
	}
	return c, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
