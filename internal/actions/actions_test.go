package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lifeadmin-backend/internal/notify"
	"lifeadmin-backend/internal/store"
)

var now = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

type harness struct {
	store *store.MemoryStore
	svc   *Service
	user  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.SetClock(func() time.Time { return now })
	u, err := ms.UpsertUser(context.Background(), "kim@example.com", "Kim")
	require.NoError(t, err)
	clock := func() time.Time { return now }
	d := notify.NewDispatcher(ms, zaptest.NewLogger(t), notify.WithClock(clock))
	return &harness{store: ms, svc: New(ms, d, zaptest.NewLogger(t), WithClock(clock)), user: u.ID}
}

func (h *harness) kinds(t *testing.T) []string {
	t.Helper()
	list, err := h.store.ListNotifications(context.Background(), h.user, false)
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Kind)
	}
	return out
}

func assertInvalid(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, field, ve.Field)
}

func strp(s string) *string { return &s }

func TestCreateTaskValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateTask(ctx, h.user, TaskInput{Title: "  "})
	assertInvalid(t, err, "title")

	_, err = h.svc.CreateTask(ctx, h.user, TaskInput{Title: strings.Repeat("x", 201)})
	assertInvalid(t, err, "title")

	_, err = h.svc.CreateTask(ctx, h.user, TaskInput{Title: "ok", Priority: "urgent"})
	assertInvalid(t, err, "priority")

	_, err = h.svc.CreateTask(ctx, h.user, TaskInput{Title: "ok", DueDate: "next week"})
	assertInvalid(t, err, "dueDate")

	task, err := h.svc.CreateTask(ctx, h.user, TaskInput{Title: " Renew car tax ", DueDate: "2026-03-11"})
	require.NoError(t, err)
	assert.Equal(t, "Renew car tax", task.Title)
	assert.Equal(t, store.PriorityMedium, task.Priority)
	assert.Equal(t, store.TaskTodo, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, []string{notify.KindTaskDueSoon}, h.kinds(t))
}

func TestCompleteTaskResolvesNotification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task, err := h.svc.CreateTask(ctx, h.user, TaskInput{Title: "File return", DueDate: "2026-03-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{notify.KindTaskOverdue}, h.kinds(t))

	done, err := h.svc.CompleteTask(ctx, h.user, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, now, *done.CompletedAt)
	assert.Empty(t, h.kinds(t))

	again, err := h.svc.CompleteTask(ctx, h.user, task.ID)
	require.NoError(t, err)
	assert.Equal(t, now, *again.CompletedAt)
}

func TestUpdateTaskPartial(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task, err := h.svc.CreateTask(ctx, h.user, TaskInput{Title: "Clean gutters", Category: "home", DueDate: "2026-03-10"})
	require.NoError(t, err)

	updated, err := h.svc.UpdateTask(ctx, h.user, task.ID, TaskPatch{Priority: strp("high"), DueDate: strp("")})
	require.NoError(t, err)
	assert.Equal(t, "Clean gutters", updated.Title)
	assert.Equal(t, "home", updated.Category)
	assert.Equal(t, store.PriorityHigh, updated.Priority)
	assert.Nil(t, updated.DueDate)
	assert.Empty(t, h.kinds(t))

	updated, err = h.svc.UpdateTask(ctx, h.user, task.ID, TaskPatch{Status: strp("done")})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	updated, err = h.svc.UpdateTask(ctx, h.user, task.ID, TaskPatch{Status: strp("todo")})
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	_, err = h.svc.UpdateTask(ctx, "someone-else", task.ID, TaskPatch{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListTasksRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ListTasks(context.Background(), h.user, "archived", "")
	assertInvalid(t, err, "status")
}

func TestDeleteTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task, err := h.svc.CreateTask(ctx, h.user, TaskInput{Title: "Call bank", DueDate: "2026-03-10"})
	require.NoError(t, err)
	require.NoError(t, h.svc.DeleteTask(ctx, h.user, task.ID))
	assert.Empty(t, h.kinds(t))
	assert.ErrorIs(t, h.svc.DeleteTask(ctx, h.user, task.ID), store.ErrNotFound)
}

type failingNotifier struct{ Notifier }

func (failingNotifier) TaskChanged(context.Context, *store.Task) error {
	return errors.New("notification backend down")
}

func TestMutationSurvivesNotifierFailure(t *testing.T) {
	ms := store.NewMemoryStore()
	u, err := ms.UpsertUser(context.Background(), "a@example.com", "")
	require.NoError(t, err)
	svc := New(ms, failingNotifier{}, zaptest.NewLogger(t))

	task, err := svc.CreateTask(context.Background(), u.ID, TaskInput{Title: "still saved"})
	require.NoError(t, err)
	_, err = ms.GetTask(context.Background(), u.ID, task.ID)
	assert.NoError(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("f", "")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("f", "2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("f", "2026-02-28T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC), *d)

	_, err = ParseDate("f", "28/02/2026")
	assertInvalid(t, err, "f")
}
