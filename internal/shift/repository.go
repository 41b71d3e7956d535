package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sari-pos/sari-pos/internal/pos"
)

// Repository provides PostgreSQL backed shift persistence. A partial
// unique index on (cashier_id, terminal) WHERE status = 'open' makes
// the one-open-shift rule hold across terminals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const shiftColumns = `id, cashier_id, terminal, status, started_at, ended_at, opening_cash, closing_cash,
	sales_count, cash_sales, credit_sales, utang_sales, utang_payments_received, notes, closing_notes`

func scanShift(row pgx.Row) (*Shift, error) {
	var sh Shift
	err := row.Scan(
		&sh.ID, &sh.CashierID, &sh.Terminal, &sh.Status, &sh.StartedAt, &sh.EndedAt,
		&sh.OpeningCash, &sh.ClosingCash, &sh.SalesCount, &sh.CashSales, &sh.CreditSales,
		&sh.UtangSales, &sh.UtangPaymentsReceived, &sh.Notes, &sh.ClosingNotes,
	)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// ActiveShift returns the open shift for a cashier/terminal pair.
func (r *Repository) ActiveShift(ctx context.Context, cashierID int64, terminal string) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE cashier_id = $1 AND terminal = $2 AND status = 'open'`, cashierID, terminal)
	sh, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveShift
	}
	if err != nil {
		return nil, fmt.Errorf("shift: query active: %w", err)
	}
	return sh, nil
}

// GetShift returns one shift by id.
func (r *Repository) GetShift(ctx context.Context, id int64) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	sh, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("shift: query by id: %w", err)
	}
	return sh, nil
}

// CreateShift inserts an open shift. A concurrent open on the same
// cashier/terminal trips the partial unique index and maps to
// ErrShiftAlreadyOpen.
func (r *Repository) CreateShift(ctx context.Context, sh Shift) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO shifts
		(cashier_id, terminal, status, started_at, opening_cash, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sh.CashierID, sh.Terminal, sh.Status, sh.StartedAt, sh.OpeningCash, sh.Notes,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrShiftAlreadyOpen
		}
		return 0, fmt.Errorf("shift: insert: %w", err)
	}
	return id, nil
}

// CloseShift marks the shift closed with its final drawer count. Only
// an open row is updatable; closed shifts are immutable history.
func (r *Repository) CloseShift(ctx context.Context, sh Shift) error {
	tag, err := r.pool.Exec(ctx, `UPDATE shifts
		SET status = 'closed', ended_at = $2, closing_cash = $3, closing_notes = $4
		WHERE id = $1 AND status = 'open'`,
		sh.ID, sh.EndedAt, sh.ClosingCash, sh.ClosingNotes)
	if err != nil {
		return fmt.Errorf("shift: close: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveShift
	}
	return nil
}

// ApplySale increments the counters for one confirmed sale.
func (r *Repository) ApplySale(ctx context.Context, shiftID int64, method pos.PaymentMethod, amount float64) error {
	var column string
	switch method {
	case pos.PaymentCash:
		column = "cash_sales"
	case pos.PaymentCard, pos.PaymentMobile:
		column = "credit_sales"
	case pos.PaymentUtang:
		column = "utang_sales"
	default:
		return fmt.Errorf("shift: unsupported payment method %q", method)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE shifts
		SET sales_count = sales_count + 1, `+column+` = `+column+` + $2
		WHERE id = $1 AND status = 'open'`, shiftID, amount)
	if err != nil {
		return fmt.Errorf("shift: apply sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveShift
	}
	return nil
}

// ApplyUtangPayment adds collected store-credit money to the drawer.
func (r *Repository) ApplyUtangPayment(ctx context.Context, shiftID int64, amount float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE shifts
		SET utang_payments_received = utang_payments_received + $2
		WHERE id = $1 AND status = 'open'`, shiftID, amount)
	if err != nil {
		return fmt.Errorf("shift: apply utang payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveShift
	}
	return nil
}

// ListShifts returns shift history, newest first.
func (r *Repository) ListShifts(ctx context.Context, filter ListFilter) ([]Shift, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1
	add := func(clause string, value any) {
		where += fmt.Sprintf(" AND "+clause, idx)
		args = append(args, value)
		idx++
	}
	if filter.CashierID != nil {
		add("cashier_id = $%d", *filter.CashierID)
	}
	if filter.Terminal != nil {
		add("terminal = $%d", *filter.Terminal)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		add("started_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("started_at < $%d", *filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shifts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("shift: count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + shiftColumns + ` FROM shifts` + where +
		fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("shift: list: %w", err)
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("shift: scan: %w", err)
		}
		shifts = append(shifts, *sh)
	}
	return shifts, total, rows.Err()
}

// StaleOpenShifts finds shifts left open past the cutoff.
func (r *Repository) StaleOpenShifts(ctx context.Context, openLongerThan time.Duration) ([]Shift, error) {
	cutoff := time.Now().UTC().Add(-openLongerThan)
	rows, err := r.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE status = 'open' AND started_at < $1 ORDER BY started_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("shift: stale query: %w", err)
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("shift: scan: %w", err)
		}
		shifts = append(shifts, *sh)
	}
	return shifts, rows.Err()
}
