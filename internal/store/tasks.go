package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const taskColumns = `id, user_id, title, description, category, priority, status, due_date, completed_at, created_at, updated_at`

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var due, completed sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category,
		&t.Priority, &t.Status, &due, &completed, &t.CreatedAt, &t.UpdatedAt)
	t.DueDate, t.CompletedAt = timePtr(due), timePtr(completed)
	return t, err
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	defer rows.Close()
	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, category, priority, status, due_date, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, t.ID, t.UserID, t.Title, t.Description, t.Category, t.Priority, t.Status,
		nullTime(t.DueDate), nullTime(t.CompletedAt),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) GetTask(ctx context.Context, userID, id string) (*Task, error) {
	t, err := scanTask(ds.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "get task")
	}
	return &t, nil
}

func (ds *DatabaseStore) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]Task, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR lower(category) = lower($3))
		ORDER BY due_date ASC NULLS LAST, created_at DESC
	`, userID, string(f.Status), f.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return collectTasks(rows)
}

func (ds *DatabaseStore) UpdateTask(ctx context.Context, t *Task) error {
	err := ds.db.QueryRowContext(ctx, `
		UPDATE tasks SET title = $3, description = $4, category = $5, priority = $6,
			status = $7, due_date = $8, completed_at = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`, t.ID, t.UserID, t.Title, t.Description, t.Category, t.Priority, t.Status,
		nullTime(t.DueDate), nullTime(t.CompletedAt),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return notFound(err, "update task")
	}
	return nil
}

func (ds *DatabaseStore) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "delete task")
	}
	return affectedOrNotFound(res, "delete task")
}

// ListOpenTasksDueBefore spans every user; the notification sweep uses it
func (ds *DatabaseStore) ListOpenTasksDueBefore(ctx context.Context, before time.Time) ([]Task, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status <> 'done' AND due_date IS NOT NULL AND due_date < $1
		ORDER BY due_date ASC
	`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}
	return collectTasks(rows)
}
