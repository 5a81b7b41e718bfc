package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const notificationColumns = `id, user_id, kind, title, message, entity_type, entity_id, dedupe_key, read, created_at, updated_at`

// UpsertNotification inserts n or refreshes the row sharing its dedupe key.
// An already-read notification becomes unread again only when its message changed.
func (ds *DatabaseStore) UpsertNotification(ctx context.Context, n *Notification) error {
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, message, entity_type, entity_id, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, dedupe_key)
		DO UPDATE SET
			kind = EXCLUDED.kind,
			title = EXCLUDED.title,
			message = EXCLUDED.message,
			entity_type = EXCLUDED.entity_type,
			entity_id = EXCLUDED.entity_id,
			read = notifications.read AND notifications.message = EXCLUDED.message,
			updated_at = NOW()
		RETURNING id, read, created_at, updated_at
	`, uuid.NewString(), n.UserID, n.Kind, n.Title, n.Message, n.EntityType, n.EntityID, n.DedupeKey,
	).Scan(&n.ID, &n.Read, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert notification: %w", err)
	}
	return nil
}

// ResolveNotifications deletes the entity's notifications, restricted to kinds when given
func (ds *DatabaseStore) ResolveNotifications(ctx context.Context, userID, entityType, entityID string, kinds ...string) (int, error) {
	if kinds == nil {
		// pq encodes a nil slice as NULL
		kinds = []string{}
	}
	res, err := ds.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE user_id = $1 AND entity_type = $2 AND entity_id = $3
		  AND (cardinality($4::text[]) = 0 OR kind = ANY($4::text[]))
	`, userID, entityType, entityID, pq.Array(kinds))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve notifications: %w", err)
	}
	return int(n), nil
}

func (ds *DatabaseStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY updated_at DESC
		LIMIT 200
	`, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.EntityType,
			&n.EntityID, &n.DedupeKey, &n.Read, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "mark notification read")
	}
	return affectedOrNotFound(res, "mark notification read")
}

func (ds *DatabaseStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res, err := ds.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return int(n), nil
}

func (ds *DatabaseStore) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "delete notification")
	}
	return affectedOrNotFound(res, "delete notification")
}
