package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) (*MemoryStore, *User) {
	t.Helper()
	m := NewMemoryStore()
	u, err := m.UpsertUser(context.Background(), "Ada@Example.com ", "Ada")
	require.NoError(t, err)
	return m, u
}

func TestUpsertUserNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	assert.Equal(t, "ada@example.com", u.Email)

	again, err := m.UpsertUser(ctx, "ada@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Ada", again.Name)

	renamed, err := m.UpsertUser(ctx, "ADA@example.com", "Ada L.")
	require.NoError(t, err)
	assert.Equal(t, u.ID, renamed.ID)
	assert.Equal(t, "Ada L.", renamed.Name)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	s, err := m.CreateSession(ctx, u.ID, time.Hour)
	require.NoError(t, err)

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	now = now.Add(2 * time.Hour)
	_, err = m.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.CreateSession(ctx, "nobody", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTasksScopedByUser(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	other, err := m.UpsertUser(ctx, "other@example.com", "")
	require.NoError(t, err)

	task := &Task{UserID: u.ID, Title: "renew passport", Status: TaskTodo, Priority: PriorityHigh}
	require.NoError(t, m.CreateTask(ctx, task))
	require.NotEmpty(t, task.ID)

	_, err = m.GetTask(ctx, other.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteTask(ctx, other.ID, task.ID), ErrNotFound)

	hijack := *task
	hijack.UserID = other.ID
	assert.ErrorIs(t, m.UpdateTask(ctx, &hijack), ErrNotFound)

	list, err := m.ListTasks(ctx, other.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListTasksOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	d1, d2 := day(2026, 3, 2), day(2026, 3, 5)

	for _, tk := range []*Task{
		{UserID: u.ID, Title: "no date", Status: TaskTodo, Category: "home"},
		{UserID: u.ID, Title: "later", Status: TaskTodo, DueDate: &d2, Category: "work"},
		{UserID: u.ID, Title: "sooner", Status: TaskDone, DueDate: &d1, Category: "Home"},
	} {
		require.NoError(t, m.CreateTask(ctx, tk))
	}

	all, err := m.ListTasks(ctx, u.ID, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sooner", all[0].Title)
	assert.Equal(t, "later", all[1].Title)
	assert.Equal(t, "no date", all[2].Title)

	home, err := m.ListTasks(ctx, u.ID, TaskFilter{Category: "home"})
	require.NoError(t, err)
	assert.Len(t, home, 2)

	done, err := m.ListTasks(ctx, u.ID, TaskFilter{Status: TaskDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "sooner", done[0].Title)

	open, err := m.ListOpenTasksDueBefore(ctx, day(2026, 4, 1))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "later", open[0].Title)
}

func TestGetTaskReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	due := day(2026, 3, 2)
	task := &Task{UserID: u.ID, Title: "a", DueDate: &due}
	require.NoError(t, m.CreateTask(ctx, task))

	got, err := m.GetTask(ctx, u.ID, task.ID)
	require.NoError(t, err)
	*got.DueDate = day(2030, 1, 1)

	again, err := m.GetTask(ctx, u.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, due, *again.DueDate)
}

func TestBillsUnpaidDueBefore(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	require.NoError(t, m.CreateBill(ctx, &Bill{UserID: u.ID, Name: "rent", DueDate: day(2026, 3, 1), Status: BillUnpaid}))
	require.NoError(t, m.CreateBill(ctx, &Bill{UserID: u.ID, Name: "power", DueDate: day(2026, 2, 1), Status: BillPaid}))
	require.NoError(t, m.CreateBill(ctx, &Bill{UserID: u.ID, Name: "phone", DueDate: day(2026, 5, 1), Status: BillUnpaid}))

	due, err := m.ListUnpaidBillsDueBefore(ctx, day(2026, 4, 1))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "rent", due[0].Name)

	unpaid, err := m.ListBills(ctx, u.ID, BillFilter{Status: BillUnpaid})
	require.NoError(t, err)
	require.Len(t, unpaid, 2)
	assert.Equal(t, "rent", unpaid[0].Name)
}

func TestHabitLogs(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	h := &Habit{UserID: u.ID, Name: "walk", Frequency: FrequencyDaily}
	require.NoError(t, m.CreateHabit(ctx, h))

	require.NoError(t, m.AddHabitLog(ctx, &HabitLog{HabitID: h.ID, UserID: u.ID, CompletedOn: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}))
	require.NoError(t, m.AddHabitLog(ctx, &HabitLog{HabitID: h.ID, UserID: u.ID, CompletedOn: day(2026, 3, 2)}))

	err := m.AddHabitLog(ctx, &HabitLog{HabitID: h.ID, UserID: u.ID, CompletedOn: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, ErrConflict)

	logs, err := m.ListHabitLogs(ctx, u.ID, h.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, day(2026, 3, 2), logs[0].CompletedOn)
	assert.Equal(t, day(2026, 3, 1), logs[1].CompletedOn)

	one, err := m.ListHabitLogs(ctx, u.ID, h.ID, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	require.NoError(t, m.DeleteHabit(ctx, u.ID, h.ID))
	_, err = m.ListHabitLogs(ctx, u.ID, h.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.habitLogs)
}

func TestListDocumentsOrdering(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	exp := day(2026, 6, 1)
	require.NoError(t, m.CreateDocument(ctx, &Document{UserID: u.ID, Name: "b lease"}))
	require.NoError(t, m.CreateDocument(ctx, &Document{UserID: u.ID, Name: "a will"}))
	require.NoError(t, m.CreateDocument(ctx, &Document{UserID: u.ID, Name: "passport", ExpiryDate: &exp, Category: "ID"}))

	docs, err := m.ListDocuments(ctx, u.ID, DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "passport", docs[0].Name)
	assert.Equal(t, "a will", docs[1].Name)
	assert.Equal(t, "b lease", docs[2].Name)

	ids, err := m.ListDocuments(ctx, u.ID, DocumentFilter{Category: "id"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	expiring, err := m.ListDocumentsExpiringBefore(ctx, day(2026, 7, 1))
	require.NoError(t, err)
	assert.Len(t, expiring, 1)
}

func TestUpsertNotificationDedupes(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	n := &Notification{UserID: u.ID, Kind: "task_due_soon", Title: "Due soon", Message: "due tomorrow",
		EntityType: "task", EntityID: "t1", DedupeKey: "task:t1:task_due_soon"}
	require.NoError(t, m.UpsertNotification(ctx, n))
	firstID := n.ID
	require.NoError(t, m.MarkNotificationRead(ctx, u.ID, firstID))

	now = now.Add(time.Minute)
	same := &Notification{UserID: u.ID, Kind: "task_due_soon", Title: "Due soon", Message: "due tomorrow",
		EntityType: "task", EntityID: "t1", DedupeKey: "task:t1:task_due_soon"}
	require.NoError(t, m.UpsertNotification(ctx, same))
	assert.Equal(t, firstID, same.ID)
	assert.True(t, same.Read, "unchanged message keeps read state")
	assert.Equal(t, now, same.UpdatedAt)
	assert.Equal(t, now.Add(-time.Minute), same.CreatedAt)

	changed := &Notification{UserID: u.ID, Kind: "task_due_soon", Title: "Due soon", Message: "due today",
		EntityType: "task", EntityID: "t1", DedupeKey: "task:t1:task_due_soon"}
	require.NoError(t, m.UpsertNotification(ctx, changed))
	assert.Equal(t, firstID, changed.ID)
	assert.False(t, changed.Read)

	list, err := m.ListNotifications(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestResolveAndMarkNotifications(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	for _, kind := range []string{"bill_due_soon", "bill_overdue"} {
		require.NoError(t, m.UpsertNotification(ctx, &Notification{UserID: u.ID, Kind: kind, Title: kind,
			EntityType: "bill", EntityID: "b1", DedupeKey: "bill:b1:" + kind}))
	}
	require.NoError(t, m.UpsertNotification(ctx, &Notification{UserID: u.ID, Kind: "task_overdue", Title: "x",
		EntityType: "task", EntityID: "t1", DedupeKey: "task:t1:task_overdue"}))

	n, err := m.ResolveNotifications(ctx, u.ID, "bill", "b1", "bill_due_soon")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.ResolveNotifications(ctx, u.ID, "bill", "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := m.MarkAllNotificationsRead(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	unread, err := m.ListNotifications(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := m.ListNotifications(ctx, u.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NoError(t, m.DeleteNotification(ctx, u.ID, all[0].ID))
	assert.ErrorIs(t, m.DeleteNotification(ctx, u.ID, all[0].ID), ErrNotFound)
}

func TestChatMessagesWindow(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	c := &Conversation{UserID: u.ID, Title: "bills"}
	require.NoError(t, m.CreateConversation(ctx, c))

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three", "four"} {
		require.NoError(t, m.AddChatMessage(ctx, &ChatMessage{ConversationID: c.ID, UserID: u.ID,
			Role: RoleUser, Content: text, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}

	last, err := m.ListChatMessages(ctx, u.ID, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "three", last[0].Content)
	assert.Equal(t, "four", last[1].Content)

	all, err := m.ListChatMessages(ctx, u.ID, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	err = m.AddChatMessage(ctx, &ChatMessage{ConversationID: c.ID, UserID: "intruder", Role: RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteConversationDetachesActions(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	c := &Conversation{UserID: u.ID, Title: "t"}
	require.NoError(t, m.CreateConversation(ctx, c))
	msg := &ChatMessage{ConversationID: c.ID, UserID: u.ID, Role: RoleUser, Content: "pay rent"}
	require.NoError(t, m.AddChatMessage(ctx, msg))
	require.NoError(t, m.AddAIAction(ctx, &AIAction{UserID: u.ID, ConversationID: c.ID, MessageID: msg.ID,
		ActionType: "pay", EntityType: "bill", Confidence: 0.9}))

	require.NoError(t, m.DeleteConversation(ctx, u.ID, c.ID))

	actions, err := m.ListAIActions(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Empty(t, actions[0].ConversationID)
	assert.Empty(t, actions[0].MessageID)
	assert.Equal(t, "pay", actions[0].ActionType)

	_, err = m.ListChatMessages(ctx, u.ID, c.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversationsByActivity(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	a := &Conversation{UserID: u.ID, Title: "a"}
	b := &Conversation{UserID: u.ID, Title: "b"}
	require.NoError(t, m.CreateConversation(ctx, a))
	require.NoError(t, m.CreateConversation(ctx, b))
	require.NoError(t, m.TouchConversation(ctx, u.ID, a.ID, now.Add(time.Hour)))

	list, err := m.ListConversations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Title)
	assert.Equal(t, "b", list[1].Title)
}

func TestMarkBillPaid(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	b := &Bill{UserID: u.ID, Name: "gas", Amount: 40, DueDate: day(2026, 3, 5), Status: BillUnpaid}
	require.NoError(t, m.CreateBill(ctx, b))

	at := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	paid, err := m.MarkBillPaid(ctx, u.ID, b.ID, at)
	require.NoError(t, err)
	assert.Equal(t, BillPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, at.Equal(*paid.PaidAt))

	_, err = m.MarkBillPaid(ctx, u.ID, b.ID, at)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = m.MarkBillPaid(ctx, "someone-else", b.ID, at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordHabitCompletion(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	h := &Habit{UserID: u.ID, Name: "stretch", Frequency: FrequencyDaily}
	require.NoError(t, m.CreateHabit(ctx, h))

	first := day(2026, 3, 1)
	h.CurrentStreak, h.LongestStreak, h.LastCompleted = 1, 1, &first
	require.NoError(t, m.RecordHabitCompletion(ctx, h, nil, &HabitLog{CompletedOn: first}))

	// a completion computed from the stale habit is refused and leaves no log behind
	stale := *h
	second := day(2026, 3, 2)
	stale.LastCompleted = &second
	err := m.RecordHabitCompletion(ctx, &stale, nil, &HabitLog{CompletedOn: second})
	assert.ErrorIs(t, err, ErrConflict)

	logs, err := m.ListHabitLogs(ctx, u.ID, h.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, first, logs[0].CompletedOn)
	got, err := m.GetHabit(ctx, u.ID, h.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got.LastCompleted)
	assert.Equal(t, 1, got.CurrentStreak)

	// a duplicate day conflicts without touching the streak
	h.CurrentStreak = 5
	err = m.RecordHabitCompletion(ctx, h, &first, &HabitLog{CompletedOn: first})
	assert.ErrorIs(t, err, ErrConflict)
	got, err = m.GetHabit(ctx, u.ID, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStreak)
}

func TestDeleteForgetsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m, u := newTestStore(t)
	base := len(m.seqOf)

	task := &Task{UserID: u.ID, Title: "temp"}
	require.NoError(t, m.CreateTask(ctx, task))
	h := &Habit{UserID: u.ID, Name: "floss"}
	require.NoError(t, m.CreateHabit(ctx, h))
	require.NoError(t, m.AddHabitLog(ctx, &HabitLog{HabitID: h.ID, UserID: u.ID, CompletedOn: day(2026, 3, 1)}))
	c := &Conversation{UserID: u.ID, Title: "hi"}
	require.NoError(t, m.CreateConversation(ctx, c))
	require.NoError(t, m.AddChatMessage(ctx, &ChatMessage{ConversationID: c.ID, UserID: u.ID, Role: RoleUser, Content: "hi"}))
	sess, err := m.CreateSession(ctx, u.ID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, m.seqOf, base+6)

	require.NoError(t, m.DeleteTask(ctx, u.ID, task.ID))
	require.NoError(t, m.DeleteHabit(ctx, u.ID, h.ID))
	require.NoError(t, m.DeleteConversation(ctx, u.ID, c.ID))
	require.NoError(t, m.DeleteSession(ctx, sess.ID))
	assert.Len(t, m.seqOf, base)
}
