package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sari-pos/sari-pos/internal/platform/db"
)

// Repository provides PostgreSQL backed sale persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one transaction
// during sale submission.
type TxRepository interface {
	LockProduct(ctx context.Context, productID int64) (LockedProduct, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	SetReceiptNumber(ctx context.Context, saleID int64, number string) error
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	DecrementStock(ctx context.Context, productID int64, qty float64) error
	AddCustomerPurchase(ctx context.Context, customerID int64, amount float64, utang bool) error
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

// LockedProduct is the row snapshot taken under FOR UPDATE during
// sale submission.
type LockedProduct struct {
	Name          string
	StockQuantity float64
	MinStockLevel float64
}

func (t *txRepo) LockProduct(ctx context.Context, productID int64) (LockedProduct, error) {
	var p LockedProduct
	err := t.tx.QueryRow(ctx, `SELECT name, stock_quantity, min_stock_level FROM products
		WHERE id = $1 AND is_active FOR UPDATE`, productID).Scan(&p.Name, &p.StockQuantity, &p.MinStockLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return LockedProduct{}, ErrProductMissing
	}
	if err != nil {
		return LockedProduct{}, fmt.Errorf("sales: lock product: %w", err)
	}
	return p, nil
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales
		(customer_id, cashier_id, shift_id, terminal, payment_method, total_amount, cash_tendered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		sale.CustomerID, sale.CashierID, sale.ShiftID, sale.Terminal, sale.PaymentMethod,
		sale.TotalAmount, sale.CashTendered, sale.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sales: insert sale: %w", err)
	}
	return id, nil
}

func (t *txRepo) SetReceiptNumber(ctx context.Context, saleID int64, number string) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET receipt_number = $2 WHERE id = $1`, saleID, number)
	if err != nil {
		return fmt.Errorf("sales: set receipt number: %w", err)
	}
	return nil
}

func (t *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_items
		(sale_id, product_id, product_name, quantity, unit_price, requested_amount)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.RequestedAmount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sales: insert item: %w", err)
	}
	return id, nil
}

func (t *txRepo) DecrementStock(ctx context.Context, productID int64, qty float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2`, productID, qty)
	if err != nil {
		return fmt.Errorf("sales: decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (t *txRepo) AddCustomerPurchase(ctx context.Context, customerID int64, amount float64, utang bool) error {
	query := `UPDATE customers SET total_purchases = total_purchases + $2 WHERE id = $1`
	if utang {
		query = `UPDATE customers
			SET total_purchases = total_purchases + $2, utang_balance = utang_balance + $2
			WHERE id = $1`
	}
	tag, err := t.tx.Exec(ctx, query, customerID, amount)
	if err != nil {
		return fmt.Errorf("sales: add customer purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sales: customer %d not found", customerID)
	}
	return nil
}

const saleColumns = `id, COALESCE(receipt_number, ''), customer_id, cashier_id, shift_id, terminal,
	payment_method, total_amount, cash_tendered, created_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.ReceiptNumber, &s.CustomerID, &s.CashierID, &s.ShiftID, &s.Terminal,
		&s.PaymentMethod, &s.TotalAmount, &s.CashTendered, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSale returns one sale with its items.
func (r *Repository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sales: query by id: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT si.id, si.sale_id, si.product_id, p.name,
			si.quantity, si.unit_price, si.requested_amount
		FROM sale_items si JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1 ORDER BY si.id`, id)
	if err != nil {
		return nil, fmt.Errorf("sales: query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.RequestedAmount); err != nil {
			return nil, fmt.Errorf("sales: scan item: %w", err)
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

// ListSales returns sale history, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1
	add := func(clause string, value any) {
		where += fmt.Sprintf(" AND "+clause, idx)
		args = append(args, value)
		idx++
	}
	if filter.CustomerID != nil {
		add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.CashierID != nil {
		add("cashier_id = $%d", *filter.CashierID)
	}
	if filter.Terminal != nil {
		add("terminal = $%d", *filter.Terminal)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + saleColumns + ` FROM sales` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sales: scan: %w", err)
		}
		sales = append(sales, *s)
	}
	return sales, total, rows.Err()
}

// TotalsSince sums sale amounts created at or after the cutoff.
func (r *Repository) TotalsSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM sales
		WHERE created_at >= $1`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sales: totals since: %w", err)
	}
	return total, nil
}

// BestSeller aggregates quantity and revenue per product.
type BestSeller struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	TotalSold    float64 `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

// BestSellers returns the top products by quantity sold since the cutoff.
func (r *Repository) BestSellers(ctx context.Context, since time.Time, limit int) ([]BestSeller, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `SELECT si.product_id, p.name,
			SUM(si.quantity) AS total_sold,
			SUM(si.quantity * si.unit_price) AS total_revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= $1
		GROUP BY si.product_id, p.name
		ORDER BY total_sold DESC LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("sales: best sellers: %w", err)
	}
	defer rows.Close()

	var sellers []BestSeller
	for rows.Next() {
		var b BestSeller
		if err := rows.Scan(&b.ProductID, &b.ProductName, &b.TotalSold, &b.TotalRevenue); err != nil {
			return nil, fmt.Errorf("sales: scan best seller: %w", err)
		}
		sellers = append(sellers, b)
	}
	return sellers, rows.Err()
}
