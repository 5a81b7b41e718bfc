package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with a uniqueness rule.
	ErrConflict = errors.New("conflict")
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TaskFilter struct {
	Status   TaskStatus
	Category string
}

type BillStatus string

const (
	BillUnpaid BillStatus = "unpaid"
	BillPaid   BillStatus = "paid"
)

type Recurrence string

const (
	RecurNone      Recurrence = "none"
	RecurWeekly    Recurrence = "weekly"
	RecurMonthly   Recurrence = "monthly"
	RecurQuarterly Recurrence = "quarterly"
	RecurYearly    Recurrence = "yearly"
)

type Bill struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Name       string     `json:"name"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	DueDate    time.Time  `json:"dueDate"`
	Category   string     `json:"category"`
	Recurrence Recurrence `json:"recurrence"`
	Status     BillStatus `json:"status"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type BillFilter struct {
	Status BillStatus
}

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

type Habit struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Frequency     Frequency  `json:"frequency"`
	CurrentStreak int        `json:"currentStreak"`
	LongestStreak int        `json:"longestStreak"`
	LastCompleted *time.Time `json:"lastCompleted,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type HabitLog struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habitId"`
	UserID      string    `json:"userId"`
	CompletedOn time.Time `json:"completedOn"`
}

type Document struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	FileURL    string     `json:"fileUrl"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type DocumentFilter struct {
	Category string
}

type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	DedupeKey  string    `json:"dedupeKey"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AIAction records the intent the assistant inferred from one chat message.
type AIAction struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	ActionType     string    `json:"actionType"`
	EntityType     string    `json:"entityType"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Backend is the full persistence surface. DatabaseStore and MemoryStore both implement it;
// consumers declare the narrower interfaces they need.
type Backend interface {
	UpsertUser(ctx context.Context, email, name string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error

	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, userID, id string) (*Task, error)
	ListTasks(ctx context.Context, userID string, f TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, userID, id string) error
	ListOpenTasksDueBefore(ctx context.Context, before time.Time) ([]Task, error)

	CreateBill(ctx context.Context, b *Bill) error
	GetBill(ctx context.Context, userID, id string) (*Bill, error)
	ListBills(ctx context.Context, userID string, f BillFilter) ([]Bill, error)
	UpdateBill(ctx context.Context, b *Bill) error
	MarkBillPaid(ctx context.Context, userID, id string, at time.Time) (*Bill, error)
	DeleteBill(ctx context.Context, userID, id string) error
	ListUnpaidBillsDueBefore(ctx context.Context, before time.Time) ([]Bill, error)

	CreateHabit(ctx context.Context, h *Habit) error
	GetHabit(ctx context.Context, userID, id string) (*Habit, error)
	ListHabits(ctx context.Context, userID string) ([]Habit, error)
	UpdateHabit(ctx context.Context, h *Habit) error
	DeleteHabit(ctx context.Context, userID, id string) error
	AddHabitLog(ctx context.Context, l *HabitLog) error
	RecordHabitCompletion(ctx context.Context, h *Habit, prev *time.Time, l *HabitLog) error
	ListHabitLogs(ctx context.Context, userID, habitID string, limit int) ([]HabitLog, error)

	CreateDocument(ctx context.Context, d *Document) error
	GetDocument(ctx context.Context, userID, id string) (*Document, error)
	ListDocuments(ctx context.Context, userID string, f DocumentFilter) ([]Document, error)
	UpdateDocument(ctx context.Context, d *Document) error
	DeleteDocument(ctx context.Context, userID, id string) error
	ListDocumentsExpiringBefore(ctx context.Context, before time.Time) ([]Document, error)

	UpsertNotification(ctx context.Context, n *Notification) error
	ResolveNotifications(ctx context.Context, userID, entityType, entityID string, kinds ...string) (int, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error

	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, userID, id string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	TouchConversation(ctx context.Context, userID, id string, at time.Time) error
	DeleteConversation(ctx context.Context, userID, id string) error
	AddChatMessage(ctx context.Context, m *ChatMessage) error
	ListChatMessages(ctx context.Context, userID, conversationID string, limit int) ([]ChatMessage, error)
	AddAIAction(ctx context.Context, a *AIAction) error
	ListAIActions(ctx context.Context, userID string, limit int) ([]AIAction, error)
}

// DayOf truncates t to midnight UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
