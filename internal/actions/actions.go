// Package actions is the mutation layer behind the HTTP API. Every write
// validates its input, goes through the store and then lets the notification
// dispatcher re-evaluate the entity it touched.
package actions

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"lifeadmin-backend/internal/logging"
	"lifeadmin-backend/internal/store"
)

const (
	maxNameLen  = 200
	maxTextLen  = 4000
	dateLayout  = "2006-01-02"
	defaultCurr = "USD"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Store is the persistence the actions need.
type Store interface {
	CreateTask(ctx context.Context, t *store.Task) error
	GetTask(ctx context.Context, userID, id string) (*store.Task, error)
	ListTasks(ctx context.Context, userID string, f store.TaskFilter) ([]store.Task, error)
	UpdateTask(ctx context.Context, t *store.Task) error
	DeleteTask(ctx context.Context, userID, id string) error

	CreateBill(ctx context.Context, b *store.Bill) error
	GetBill(ctx context.Context, userID, id string) (*store.Bill, error)
	ListBills(ctx context.Context, userID string, f store.BillFilter) ([]store.Bill, error)
	UpdateBill(ctx context.Context, b *store.Bill) error
	MarkBillPaid(ctx context.Context, userID, id string, at time.Time) (*store.Bill, error)
	DeleteBill(ctx context.Context, userID, id string) error

	CreateHabit(ctx context.Context, h *store.Habit) error
	GetHabit(ctx context.Context, userID, id string) (*store.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]store.Habit, error)
	UpdateHabit(ctx context.Context, h *store.Habit) error
	DeleteHabit(ctx context.Context, userID, id string) error
	RecordHabitCompletion(ctx context.Context, h *store.Habit, prev *time.Time, l *store.HabitLog) error
	ListHabitLogs(ctx context.Context, userID, habitID string, limit int) ([]store.HabitLog, error)

	CreateDocument(ctx context.Context, d *store.Document) error
	GetDocument(ctx context.Context, userID, id string) (*store.Document, error)
	ListDocuments(ctx context.Context, userID string, f store.DocumentFilter) ([]store.Document, error)
	UpdateDocument(ctx context.Context, d *store.Document) error
	DeleteDocument(ctx context.Context, userID, id string) error
}

// Notifier is told about every mutation. *notify.Dispatcher implements it.
type Notifier interface {
	TaskChanged(ctx context.Context, t *store.Task) error
	TaskDeleted(ctx context.Context, userID, id string) error
	BillChanged(ctx context.Context, b *store.Bill) error
	BillDeleted(ctx context.Context, userID, id string) error
	HabitCompleted(ctx context.Context, h *store.Habit) error
	HabitDeleted(ctx context.Context, userID, id string) error
	DocumentChanged(ctx context.Context, d *store.Document) error
	DocumentDeleted(ctx context.Context, userID, id string) error
}

type Service struct {
	store  Store
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st Store, n Notifier, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: st, notify: n, log: log.Named("actions"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// notified logs a failed notification update. The mutation itself already
// succeeded, so the caller still gets its result.
func (s *Service) notified(ctx context.Context, what string, err error) {
	if err != nil {
		logging.For(ctx, s.log).Warn("notification update failed", zap.String("action", what), zap.Error(err))
	}
}

func requireName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(v) > maxNameLen {
		return "", invalid(field, "must be at most %d characters", maxNameLen)
	}
	return v, nil
}

func checkText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > maxTextLen {
		return "", invalid(field, "must be at most %d characters", maxTextLen)
	}
	return v, nil
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns nil for an empty string.
func ParseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, invalid(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}
