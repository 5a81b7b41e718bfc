package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const billColumns = `id, user_id, name, amount, currency, due_date, category, recurrence, status, paid_at, notes, created_at, updated_at`

func scanBill(row rowScanner) (Bill, error) {
	var b Bill
	var paid sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Currency, &b.DueDate,
		&b.Category, &b.Recurrence, &b.Status, &paid, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	b.PaidAt = timePtr(paid)
	return b, err
}

func collectBills(rows *sql.Rows) ([]Bill, error) {
	defer rows.Close()
	out := make([]Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) CreateBill(ctx context.Context, b *Bill) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO bills (id, user_id, name, amount, currency, due_date, category, recurrence, status, paid_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.Name, b.Amount, b.Currency, b.DueDate.UTC(), b.Category,
		b.Recurrence, b.Status, nullTime(b.PaidAt), b.Notes,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) GetBill(ctx context.Context, userID, id string) (*Bill, error) {
	b, err := scanBill(ds.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "get bill")
	}
	return &b, nil
}

func (ds *DatabaseStore) ListBills(ctx context.Context, userID string, f BillFilter) ([]Bill, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+billColumns+` FROM bills
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY due_date ASC, created_at ASC
	`, userID, string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return collectBills(rows)
}

func (ds *DatabaseStore) UpdateBill(ctx context.Context, b *Bill) error {
	err := ds.db.QueryRowContext(ctx, `
		UPDATE bills SET name = $3, amount = $4, currency = $5, due_date = $6, category = $7,
			recurrence = $8, status = $9, paid_at = $10, notes = $11, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.Name, b.Amount, b.Currency, b.DueDate.UTC(), b.Category,
		b.Recurrence, b.Status, nullTime(b.PaidAt), b.Notes,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return notFound(err, "update bill")
	}
	return nil
}

// MarkBillPaid moves an unpaid bill to paid in a single conditional update.
// A bill that is already paid yields ErrConflict.
func (ds *DatabaseStore) MarkBillPaid(ctx context.Context, userID, id string, at time.Time) (*Bill, error) {
	b, err := scanBill(ds.db.QueryRowContext(ctx, `
		UPDATE bills SET status = 'paid', paid_at = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'unpaid'
		RETURNING `+billColumns, id, userID, at.UTC()))
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(err, "mark bill paid")
	}
	if _, err := ds.GetBill(ctx, userID, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("bill %s is already paid: %w", id, ErrConflict)
}

func (ds *DatabaseStore) DeleteBill(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "delete bill")
	}
	return affectedOrNotFound(res, "delete bill")
}

func (ds *DatabaseStore) ListUnpaidBillsDueBefore(ctx context.Context, before time.Time) ([]Bill, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+billColumns+` FROM bills
		WHERE status = 'unpaid' AND due_date < $1
		ORDER BY due_date ASC
	`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list due bills: %w", err)
	}
	return collectBills(rows)
}
