package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sari-pos/sari-pos/internal/platform/db"
)

// Repository provides PostgreSQL backed purchase persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one transaction
// while a delivery is received.
type TxRepository interface {
	InsertPurchase(ctx context.Context, purchase Purchase) (int64, error)
	InsertPurchaseItem(ctx context.Context, item PurchaseItem) (int64, error)
	ReceiveStock(ctx context.Context, productID int64, qty, unitCost float64) (ReceivedProduct, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ReceivedProduct is the product snapshot after a restock line is
// applied.
type ReceivedProduct struct {
	Name          string
	StockQuantity float64
}

func (t *txRepo) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchases
		(supplier, total_cost, notes, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		purchase.Supplier, purchase.TotalCost, purchase.Notes, purchase.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("purchases: insert purchase: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertPurchaseItem(ctx context.Context, item PurchaseItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_items
		(purchase_id, product_id, quantity, unit_cost)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		item.PurchaseID, item.ProductID, item.Quantity, item.UnitCost,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("purchases: insert item: %w", err)
	}
	return id, nil
}

// ReceiveStock increments the product's stock and moves its cost price
// to the latest delivered cost.
func (t *txRepo) ReceiveStock(ctx context.Context, productID int64, qty, unitCost float64) (ReceivedProduct, error) {
	var p ReceivedProduct
	err := t.tx.QueryRow(ctx, `UPDATE products
		SET stock_quantity = stock_quantity + $2, cost_price = $3, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING name, stock_quantity`, productID, qty, unitCost,
	).Scan(&p.Name, &p.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReceivedProduct{}, ErrProductMissing
	}
	if err != nil {
		return ReceivedProduct{}, fmt.Errorf("purchases: receive stock: %w", err)
	}
	return p, nil
}

const purchaseColumns = `id, supplier, total_cost, notes, created_at`

func scanPurchase(row pgx.Row) (*Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.Supplier, &p.TotalCost, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPurchase returns one purchase with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (*Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
	purchase, err := scanPurchase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("purchases: query by id: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT pi.id, pi.purchase_id, pi.product_id, p.name,
			pi.quantity, pi.unit_cost
		FROM purchase_items pi JOIN products p ON p.id = pi.product_id
		WHERE pi.purchase_id = $1 ORDER BY pi.id`, id)
	if err != nil {
		return nil, fmt.Errorf("purchases: query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitCost); err != nil {
			return nil, fmt.Errorf("purchases: scan item: %w", err)
		}
		purchase.Items = append(purchase.Items, item)
	}
	return purchase, rows.Err()
}

// ListPurchases returns purchase history, newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1
	add := func(clause string, value any) {
		where += fmt.Sprintf(" AND "+clause, idx)
		args = append(args, value)
		idx++
	}
	if filter.Supplier != nil {
		add("supplier ILIKE '%%' || $%d || '%%'", *filter.Supplier)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("purchases: count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + purchaseColumns + ` FROM purchases` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("purchases: list: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("purchases: scan: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, total, rows.Err()
}
