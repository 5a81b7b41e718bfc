package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const habitColumns = `id, user_id, name, description, frequency, current_streak, longest_streak, last_completed, created_at, updated_at`

func scanHabit(row rowScanner) (Habit, error) {
	var h Habit
	var last sql.NullTime
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.Frequency,
		&h.CurrentStreak, &h.LongestStreak, &last, &h.CreatedAt, &h.UpdatedAt)
	h.LastCompleted = timePtr(last)
	return h, err
}

func (ds *DatabaseStore) CreateHabit(ctx context.Context, h *Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO habits (id, user_id, name, description, frequency, current_streak, longest_streak, last_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, h.ID, h.UserID, h.Name, h.Description, h.Frequency, h.CurrentStreak, h.LongestStreak,
		nullTime(h.LastCompleted),
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) GetHabit(ctx context.Context, userID, id string) (*Habit, error) {
	h, err := scanHabit(ds.db.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "get habit")
	}
	return &h, nil
}

func (ds *DatabaseStore) ListHabits(ctx context.Context, userID string) ([]Habit, error) {
	rows, err := ds.db.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	out := make([]Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) UpdateHabit(ctx context.Context, h *Habit) error {
	return updateHabit(ctx, ds.db, h, "")
}

// updateHabit saves h. A non-empty guard is appended to the WHERE clause and
// may reference $9, the last_completed value the caller read.
func updateHabit(ctx context.Context, q querier, h *Habit, guard string, args ...any) error {
	err := q.QueryRowContext(ctx, `
		UPDATE habits SET name = $3, description = $4, frequency = $5, current_streak = $6,
			longest_streak = $7, last_completed = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`+guard+`
		RETURNING created_at, updated_at
	`, append([]any{h.ID, h.UserID, h.Name, h.Description, h.Frequency, h.CurrentStreak, h.LongestStreak,
		nullTime(h.LastCompleted)}, args...)...,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return notFound(err, "update habit")
	}
	return nil
}

func (ds *DatabaseStore) DeleteHabit(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "delete habit")
	}
	return affectedOrNotFound(res, "delete habit")
}

// AddHabitLog returns ErrConflict when the habit was already logged that day
func (ds *DatabaseStore) AddHabitLog(ctx context.Context, l *HabitLog) error {
	return insertHabitLog(ctx, ds.db, l)
}

func insertHabitLog(ctx context.Context, q querier, l *HabitLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CompletedOn = DayOf(l.CompletedOn)
	res, err := q.ExecContext(ctx, `
		INSERT INTO habit_logs (id, habit_id, user_id, completed_on)
		SELECT $1, h.id, h.user_id, $4::date FROM habits h WHERE h.id = $2 AND h.user_id = $3
	`, l.ID, l.HabitID, l.UserID, l.CompletedOn.Format("2006-01-02"))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return notFound(err, "add habit log")
	}
	return affectedOrNotFound(res, "add habit log")
}

// RecordHabitCompletion logs the completion and saves the streak fields of h
// in one transaction. The habit must still have last completion prev, so two
// racing completions cannot both advance the streak.
func (ds *DatabaseStore) RecordHabitCompletion(ctx context.Context, h *Habit, prev *time.Time, l *HabitLog) error {
	l.HabitID, l.UserID = h.ID, h.UserID
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin habit completion: %w", err)
	}
	defer tx.Rollback()

	if err := insertHabitLog(ctx, tx, l); err != nil {
		return err
	}
	err = updateHabit(ctx, tx, h, " AND last_completed IS NOT DISTINCT FROM $9", nullTime(prev))
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("habit %s changed concurrently: %w", h.ID, ErrConflict)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit habit completion: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) ListHabitLogs(ctx context.Context, userID, habitID string, limit int) ([]HabitLog, error) {
	if _, err := ds.GetHabit(ctx, userID, habitID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1000
	}
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, habit_id, user_id, completed_on FROM habit_logs
		WHERE habit_id = $1 AND user_id = $2
		ORDER BY completed_on DESC
		LIMIT $3
	`, habitID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list habit logs: %w", err)
	}
	defer rows.Close()

	out := make([]HabitLog, 0)
	for rows.Next() {
		var l HabitLog
		if err := rows.Scan(&l.ID, &l.HabitID, &l.UserID, &l.CompletedOn); err != nil {
			return nil, err
		}
		l.CompletedOn = DayOf(l.CompletedOn)
		out = append(out, l)
	}
	return out, rows.Err()
}
