package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (ds *DatabaseStore) CreateConversation(ctx context.Context, c *Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, user_id, title) VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Title).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) GetConversation(ctx context.Context, userID, id string) (*Conversation, error) {
	var c Conversation
	err := ds.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at FROM conversations
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "get conversation")
	}
	return &c, nil
}

func (ds *DatabaseStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]Conversation, 0)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) TouchConversation(ctx context.Context, userID, id string, at time.Time) error {
	res, err := ds.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = $3 WHERE id = $1 AND user_id = $2`, id, userID, at.UTC())
	if err != nil {
		return notFound(err, "touch conversation")
	}
	return affectedOrNotFound(res, "touch conversation")
}

func (ds *DatabaseStore) DeleteConversation(ctx context.Context, userID, id string) error {
	res, err := ds.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "delete conversation")
	}
	return affectedOrNotFound(res, "delete conversation")
}

func (ds *DatabaseStore) AddChatMessage(ctx context.Context, m *ChatMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	res, err := ds.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, user_id, role, content, created_at)
		SELECT $1, c.id, c.user_id, $4, $5, $6 FROM conversations c
		WHERE c.id = $2 AND c.user_id = $3
	`, m.ID, m.ConversationID, m.UserID, m.Role, m.Content, m.CreatedAt.UTC())
	if err != nil {
		return notFound(err, "add chat message")
	}
	return affectedOrNotFound(res, "add chat message")
}

// ListChatMessages returns the newest limit messages, oldest first
func (ds *DatabaseStore) ListChatMessages(ctx context.Context, userID, conversationID string, limit int) ([]ChatMessage, error) {
	if _, err := ds.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10000
	}
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, conversation_id, user_id, role, content, created_at FROM (
			SELECT * FROM chat_messages
			WHERE conversation_id = $1 AND user_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC
	`, conversationID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]ChatMessage, 0)
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) AddAIAction(ctx context.Context, a *AIAction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := ds.db.QueryRowContext(ctx, `
		INSERT INTO ai_actions (id, user_id, conversation_id, message_id, action_type, entity_type, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.UserID, nullString(a.ConversationID), nullString(a.MessageID),
		a.ActionType, a.EntityType, a.Confidence,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add ai action: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) ListAIActions(ctx context.Context, userID string, limit int) ([]AIAction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(conversation_id::text, ''), COALESCE(message_id::text, ''),
			action_type, entity_type, confidence, created_at
		FROM ai_actions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai actions: %w", err)
	}
	defer rows.Close()

	out := make([]AIAction, 0)
	for rows.Next() {
		var a AIAction
		if err := rows.Scan(&a.ID, &a.UserID, &a.ConversationID, &a.MessageID,
			&a.ActionType, &a.EntityType, &a.Confidence, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
