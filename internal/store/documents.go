package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const documentColumns = `id, user_id, name, category, file_url, expiry_date, notes, created_at, updated_at`

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var expiry sql.NullTime
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Category, &d.FileURL, &expiry,
		&d.Notes, &d.CreatedAt, &d.UpdatedAt)
	d.ExpiryDate = timePtr(expiry)
	return d, err
}

func collectDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()
	out := make([]Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) CreateDocument(ctx context.Context, d *Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, user_id, name, category, file_url, expiry_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, d.ID, d.UserID, d.Name, d.Category, d.FileURL, nullTime(d.ExpiryDate), d.Notes,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) GetDocument(ctx context.Context, userID, id string) (*Document, error) {
	d, err := scanDocument(ds.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "get document")
	}
	return &d, nil
}

func (ds *DatabaseStore) ListDocuments(ctx context.Context, userID string, f DocumentFilter) ([]Document, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE user_id = $1 AND ($2 = '' OR lower(category) = lower($2))
		ORDER BY expiry_date ASC NULLS LAST, name ASC
	`, userID, f.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return collectDocuments(rows)
}

func (ds *DatabaseStore) UpdateDocument(ctx context.Context, d *Document) error {
	err := ds.db.QueryRowContext(ctx, `
		UPDATE documents SET name = $3, category = $4, file_url = $5, expiry_date = $6,
			notes = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`, d.ID, d.UserID, d.Name, d.Category, d.FileURL, nullTime(d.ExpiryDate), d.Notes,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return notFound(err, "update document")
	}
	return nil
}

func (ds *DatabaseStore) DeleteDocument(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "delete document")
	}
	return affectedOrNotFound(res, "delete document")
}

func (ds *DatabaseStore) ListDocumentsExpiringBefore(ctx context.Context, before time.Time) ([]Document, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE expiry_date IS NOT NULL AND expiry_date < $1
		ORDER BY expiry_date ASC
	`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring documents: %w", err)
	}
	return collectDocuments(rows)
}
