package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps every record in process memory. It backs the service when no
// database is configured and doubles as the test backend.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	users         map[string]User
	sessions      map[string]Session
	tasks         map[string]Task
	bills         map[string]Bill
	habits        map[string]Habit
	habitLogs     map[string]HabitLog
	documents     map[string]Document
	notifications map[string]Notification
	conversations map[string]Conversation
	messages      map[string]ChatMessage
	aiActions     map[string]AIAction

	// insertion counter so records created within the same instant keep a stable order
	seq   int64
	seqOf map[string]int64
	dirty bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		users:         make(map[string]User),
		sessions:      make(map[string]Session),
		tasks:         make(map[string]Task),
		bills:         make(map[string]Bill),
		habits:        make(map[string]Habit),
		habitLogs:     make(map[string]HabitLog),
		documents:     make(map[string]Document),
		notifications: make(map[string]Notification),
		conversations: make(map[string]Conversation),
		messages:      make(map[string]ChatMessage),
		aiActions:     make(map[string]AIAction),
		seqOf:         make(map[string]int64),
	}
}

var _ Backend = (*MemoryStore)(nil)

// SetClock replaces the time source; tests use it to pin timestamps.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// stampLocked assigns an id when missing and records insertion order.
func (m *MemoryStore) stampLocked(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
	m.seq++
	m.seqOf[*id] = m.seq
	m.dirty = true
}

// dropLocked forgets the insertion order of a removed record.
func (m *MemoryStore) dropLocked(id string) {
	delete(m.seqOf, id)
	m.dirty = true
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ---- Users & sessions ----

func (m *MemoryStore) UpsertUser(_ context.Context, email, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			if name != "" && u.Name != name {
				u.Name = name
				m.users[id] = u
				m.dirty = true
			}
			out := u
			return &out, nil
		}
	}
	u := User{Email: email, Name: name, CreatedAt: m.now()}
	m.stampLocked(&u.ID)
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, userID string, ttl time.Duration) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return nil, ErrNotFound
	}
	s := Session{UserID: userID, ExpiresAt: m.now().Add(ttl)}
	m.stampLocked(&s.ID)
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		m.dropLocked(id)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.dropLocked(id)
	return nil
}

// ---- Tasks ----

func (m *MemoryStore) CreateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	t.CreatedAt, t.UpdatedAt = now, now
	m.stampLocked(&t.ID)
	m.tasks[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetTask(_ context.Context, userID, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	t.DueDate, t.CompletedAt = cloneTime(t.DueDate), cloneTime(t.CompletedAt)
	return &t, nil
}

func (m *MemoryStore) ListTasks(_ context.Context, userID string, f TaskFilter) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0)
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
			continue
		}
		t.DueDate, t.CompletedAt = cloneTime(t.DueDate), cloneTime(t.CompletedAt)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.DueDate == nil) != (b.DueDate == nil) {
			return a.DueDate != nil
		}
		if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
		return m.seqOf[a.ID] > m.seqOf[b.ID]
	})
	return out, nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tasks[t.ID]
	if !ok || cur.UserID != t.UserID {
		return ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = m.now()
	m.tasks[t.ID] = *t
	m.dirty = true
	return nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(m.tasks, id)
	m.dropLocked(id)
	return nil
}

func (m *MemoryStore) ListOpenTasksDueBefore(_ context.Context, before time.Time) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0)
	for _, t := range m.tasks {
		if t.Status == TaskDone || t.DueDate == nil || !t.DueDate.Before(before) {
			continue
		}
		t.DueDate, t.CompletedAt = cloneTime(t.DueDate), cloneTime(t.CompletedAt)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out, nil
}

// ---- Bills ----

func (m *MemoryStore) CreateBill(_ context.Context, b *Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	b.CreatedAt, b.UpdatedAt = now, now
	m.stampLocked(&b.ID)
	m.bills[b.ID] = *b
	return nil
}

func (m *MemoryStore) GetBill(_ context.Context, userID, id string) (*Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bills[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	b.PaidAt = cloneTime(b.PaidAt)
	return &b, nil
}

func (m *MemoryStore) ListBills(_ context.Context, userID string, f BillFilter) ([]Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Bill, 0)
	for _, b := range m.bills {
		if b.UserID != userID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		b.PaidAt = cloneTime(b.PaidAt)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return m.seqOf[out[i].ID] < m.seqOf[out[j].ID]
	})
	return out, nil
}

func (m *MemoryStore) UpdateBill(_ context.Context, b *Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bills[b.ID]
	if !ok || cur.UserID != b.UserID {
		return ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = m.now()
	m.bills[b.ID] = *b
	m.dirty = true
	return nil
}

func (m *MemoryStore) MarkBillPaid(_ context.Context, userID, id string, at time.Time) (*Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	if b.Status == BillPaid {
		return nil, fmt.Errorf("bill %s is already paid: %w", id, ErrConflict)
	}
	b.Status = BillPaid
	b.PaidAt = &at
	b.UpdatedAt = m.now()
	m.bills[id] = b
	m.dirty = true
	b.PaidAt = cloneTime(b.PaidAt)
	return &b, nil
}

func (m *MemoryStore) DeleteBill(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok || b.UserID != userID {
		return ErrNotFound
	}
	delete(m.bills, id)
	m.dropLocked(id)
	return nil
}

func (m *MemoryStore) ListUnpaidBillsDueBefore(_ context.Context, before time.Time) ([]Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Bill, 0)
	for _, b := range m.bills {
		if b.Status != BillUnpaid || !b.DueDate.Before(before) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// ---- Habits ----

func (m *MemoryStore) CreateHabit(_ context.Context, h *Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	h.CreatedAt, h.UpdatedAt = now, now
	m.stampLocked(&h.ID)
	m.habits[h.ID] = *h
	return nil
}

func (m *MemoryStore) GetHabit(_ context.Context, userID, id string) (*Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.habits[id]
	if !ok || h.UserID != userID {
		return nil, ErrNotFound
	}
	h.LastCompleted = cloneTime(h.LastCompleted)
	return &h, nil
}

func (m *MemoryStore) ListHabits(_ context.Context, userID string) ([]Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Habit, 0)
	for _, h := range m.habits {
		if h.UserID != userID {
			continue
		}
		h.LastCompleted = cloneTime(h.LastCompleted)
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return m.seqOf[out[i].ID] < m.seqOf[out[j].ID] })
	return out, nil
}

func (m *MemoryStore) UpdateHabit(_ context.Context, h *Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.habits[h.ID]
	if !ok || cur.UserID != h.UserID {
		return ErrNotFound
	}
	h.CreatedAt = cur.CreatedAt
	h.UpdatedAt = m.now()
	m.habits[h.ID] = *h
	m.dirty = true
	return nil
}

func (m *MemoryStore) DeleteHabit(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.habits[id]
	if !ok || h.UserID != userID {
		return ErrNotFound
	}
	delete(m.habits, id)
	m.dropLocked(id)
	for lid, l := range m.habitLogs {
		if l.HabitID == id {
			delete(m.habitLogs, lid)
			delete(m.seqOf, lid)
		}
	}
	return nil
}

func (m *MemoryStore) AddHabitLog(_ context.Context, l *HabitLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addHabitLogLocked(l)
}

func (m *MemoryStore) addHabitLogLocked(l *HabitLog) error {
	h, ok := m.habits[l.HabitID]
	if !ok || h.UserID != l.UserID {
		return ErrNotFound
	}
	l.CompletedOn = DayOf(l.CompletedOn)
	for _, existing := range m.habitLogs {
		if existing.HabitID == l.HabitID && existing.CompletedOn.Equal(l.CompletedOn) {
			return ErrConflict
		}
	}
	m.stampLocked(&l.ID)
	m.habitLogs[l.ID] = *l
	return nil
}

// RecordHabitCompletion adds the log and saves h under one lock, provided the
// stored habit still has last completion prev.
func (m *MemoryStore) RecordHabitCompletion(_ context.Context, h *Habit, prev *time.Time, l *HabitLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.habits[h.ID]
	if !ok || cur.UserID != h.UserID {
		return ErrNotFound
	}
	if !sameTime(cur.LastCompleted, prev) {
		return fmt.Errorf("habit %s changed concurrently: %w", h.ID, ErrConflict)
	}
	l.HabitID, l.UserID = h.ID, h.UserID
	if err := m.addHabitLogLocked(l); err != nil {
		return err
	}
	h.CreatedAt = cur.CreatedAt
	h.UpdatedAt = m.now()
	stored := *h
	stored.LastCompleted = cloneTime(h.LastCompleted)
	m.habits[h.ID] = stored
	return nil
}

func (m *MemoryStore) ListHabitLogs(_ context.Context, userID, habitID string, limit int) ([]HabitLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.habits[habitID]
	if !ok || h.UserID != userID {
		return nil, ErrNotFound
	}
	out := make([]HabitLog, 0)
	for _, l := range m.habitLogs {
		if l.HabitID == habitID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedOn.After(out[j].CompletedOn) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Documents ----

func (m *MemoryStore) CreateDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	d.CreatedAt, d.UpdatedAt = now, now
	m.stampLocked(&d.ID)
	m.documents[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, userID, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok || d.UserID != userID {
		return nil, ErrNotFound
	}
	d.ExpiryDate = cloneTime(d.ExpiryDate)
	return &d, nil
}

func (m *MemoryStore) ListDocuments(_ context.Context, userID string, f DocumentFilter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0)
	for _, d := range m.documents {
		if d.UserID != userID {
			continue
		}
		if f.Category != "" && !strings.EqualFold(d.Category, f.Category) {
			continue
		}
		d.ExpiryDate = cloneTime(d.ExpiryDate)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.ExpiryDate == nil) != (b.ExpiryDate == nil) {
			return a.ExpiryDate != nil
		}
		if a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return a.Name < b.Name
	})
	return out, nil
}

func (m *MemoryStore) UpdateDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.documents[d.ID]
	if !ok || cur.UserID != d.UserID {
		return ErrNotFound
	}
	d.CreatedAt = cur.CreatedAt
	d.UpdatedAt = m.now()
	m.documents[d.ID] = *d
	m.dirty = true
	return nil
}

func (m *MemoryStore) DeleteDocument(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.UserID != userID {
		return ErrNotFound
	}
	delete(m.documents, id)
	m.dropLocked(id)
	return nil
}

func (m *MemoryStore) ListDocumentsExpiringBefore(_ context.Context, before time.Time) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0)
	for _, d := range m.documents {
		if d.ExpiryDate == nil || !d.ExpiryDate.Before(before) {
			continue
		}
		d.ExpiryDate = cloneTime(d.ExpiryDate)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

// ---- Notifications ----

func (m *MemoryStore) UpsertNotification(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, cur := range m.notifications {
		if cur.UserID != n.UserID || cur.DedupeKey != n.DedupeKey {
			continue
		}
		n.ID = id
		n.CreatedAt = cur.CreatedAt
		n.UpdatedAt = now
		n.Read = cur.Read && cur.Message == n.Message
		m.notifications[id] = *n
		m.dirty = true
		return nil
	}
	n.CreatedAt, n.UpdatedAt = now, now
	n.Read = false
	m.stampLocked(&n.ID)
	m.notifications[n.ID] = *n
	return nil
}

func (m *MemoryStore) ResolveNotifications(_ context.Context, userID, entityType, entityID string, kinds ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, n := range m.notifications {
		if n.UserID != userID || n.EntityType != entityType || n.EntityID != entityID {
			continue
		}
		if len(kinds) > 0 && !containsString(kinds, n.Kind) {
			continue
		}
		delete(m.notifications, id)
		delete(m.seqOf, id)
		removed++
	}
	if removed > 0 {
		m.dirty = true
	}
	return removed, nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Notification, 0)
	for _, n := range m.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return m.seqOf[out[i].ID] > m.seqOf[out[j].ID]
	})
	return out, nil
}

func (m *MemoryStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	m.notifications[id] = n
	m.dirty = true
	return nil
}

func (m *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			m.notifications[id] = n
			count++
		}
	}
	if count > 0 {
		m.dirty = true
	}
	return count, nil
}

func (m *MemoryStore) DeleteNotification(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(m.notifications, id)
	m.dropLocked(id)
	return nil
}

// ---- Chat ----

func (m *MemoryStore) CreateConversation(_ context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c.CreatedAt, c.UpdatedAt = now, now
	m.stampLocked(&c.ID)
	m.conversations[c.ID] = *c
	return nil
}

func (m *MemoryStore) GetConversation(_ context.Context, userID, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) ListConversations(_ context.Context, userID string) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Conversation, 0)
	for _, c := range m.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return m.seqOf[out[i].ID] > m.seqOf[out[j].ID]
	})
	return out, nil
}

func (m *MemoryStore) TouchConversation(_ context.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.UpdatedAt = at
	m.conversations[id] = c
	m.dirty = true
	return nil
}

func (m *MemoryStore) DeleteConversation(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(m.conversations, id)
	m.dropLocked(id)
	for mid, msg := range m.messages {
		if msg.ConversationID == id {
			delete(m.messages, mid)
			delete(m.seqOf, mid)
		}
	}
	for aid, a := range m.aiActions {
		if a.ConversationID == id {
			a.ConversationID, a.MessageID = "", ""
			m.aiActions[aid] = a
		}
	}
	return nil
}

func (m *MemoryStore) AddChatMessage(_ context.Context, msg *ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[msg.ConversationID]
	if !ok || c.UserID != msg.UserID {
		return ErrNotFound
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now()
	}
	m.stampLocked(&msg.ID)
	m.messages[msg.ID] = *msg
	return nil
}

func (m *MemoryStore) ListChatMessages(_ context.Context, userID, conversationID string, limit int) ([]ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[conversationID]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	out := make([]ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return m.seqOf[out[i].ID] < m.seqOf[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryStore) AddAIAction(_ context.Context, a *AIAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = m.now()
	m.stampLocked(&a.ID)
	m.aiActions[a.ID] = *a
	return nil
}

func (m *MemoryStore) ListAIActions(_ context.Context, userID string, limit int) ([]AIAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AIAction, 0)
	for _, a := range m.aiActions {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seqOf[out[i].ID] > m.seqOf[out[j].ID] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
