package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lifeadmin-backend/internal/db"
)

// DatabaseStore stores every record in PostgreSQL
type DatabaseStore struct {
	db *db.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

var _ Backend = (*DatabaseStore)(nil)

// querier is satisfied by *db.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// notFound maps sql.ErrNoRows and malformed ids to ErrNotFound and wraps
// everything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isInvalidText reports a Postgres invalid_text_representation (22P02), raised
// when an id that is not a UUID is compared against a UUID column.
func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

func affectedOrNotFound(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Users & sessions ----

// UpsertUser creates the user on first sign-in and refreshes the display name afterwards
func (ds *DatabaseStore) UpsertUser(ctx context.Context, email, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var u User
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email)
		DO UPDATE SET name = CASE WHEN EXCLUDED.name = '' THEN users.name ELSE EXCLUDED.name END
		RETURNING id, email, name, created_at
	`, uuid.NewString(), email, name).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

func (ds *DatabaseStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := ds.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return &u, nil
}

func (ds *DatabaseStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	s := Session{ID: uuid.NewString(), UserID: userID}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		RETURNING expires_at
	`, s.ID, userID, ttl.Seconds()).Scan(&s.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

// GetSession returns ErrNotFound for unknown and expired sessions alike
func (ds *DatabaseStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := ds.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`, id).Scan(&s.ID, &s.UserID, &s.ExpiresAt)
	if err != nil {
		return nil, notFound(err, "get session")
	}
	return &s, nil
}

func (ds *DatabaseStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := ds.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
