package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lifeadmin-backend/internal/notify"
	"lifeadmin-backend/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextStreakDaily(t *testing.T) {
	last := date(2026, 3, 9)
	h := &store.Habit{Frequency: store.FrequencyDaily, CurrentStreak: 4, LastCompleted: &last}

	n, err := NextStreak(h, date(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = NextStreak(h, date(2026, 3, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = NextStreak(h, date(2026, 3, 9))
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = NextStreak(h, date(2026, 3, 1))
	assertInvalid(t, err, "date")

	n, err = NextStreak(&store.Habit{Frequency: store.FrequencyDaily}, date(2026, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextStreakWeekly(t *testing.T) {
	// 2026-03-09 is a Monday.
	last := date(2026, 3, 11)
	h := &store.Habit{Frequency: store.FrequencyWeekly, CurrentStreak: 2, LastCompleted: &last}

	_, err := NextStreak(h, date(2026, 3, 15))
	assert.ErrorIs(t, err, store.ErrConflict)

	n, err := NextStreak(h, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = NextStreak(h, date(2026, 3, 22))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = NextStreak(h, date(2026, 3, 23))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextStreakWeeklyAcrossYear(t *testing.T) {
	// 2026-12-31 falls in ISO week 53 of 2026 and 2027-01-04 in week 1 of 2027.
	last := date(2026, 12, 31)
	h := &store.Habit{Frequency: store.FrequencyWeekly, CurrentStreak: 1, LastCompleted: &last}
	n, err := NextStreak(h, date(2027, 1, 4))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCompleteHabitMilestone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	habit, err := h.svc.CreateHabit(ctx, h.user, HabitInput{Name: "Journal"})
	require.NoError(t, err)
	assert.Equal(t, store.FrequencyDaily, habit.Frequency)

	for _, day := range []string{"2026-03-08", "2026-03-09", ""} {
		habit, err = h.svc.CompleteHabit(ctx, h.user, habit.ID, day)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, habit.CurrentStreak)
	assert.Equal(t, 3, habit.LongestStreak)
	assert.Equal(t, date(2026, 3, 10), *habit.LastCompleted)
	assert.Equal(t, []string{notify.KindHabitMilestone}, h.kinds(t))

	_, err = h.svc.CompleteHabit(ctx, h.user, habit.ID, "")
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = h.svc.CompleteHabit(ctx, h.user, habit.ID, "2026-03-11")
	assertInvalid(t, err, "date")

	logs, err := h.svc.HabitLogs(ctx, h.user, habit.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	require.NoError(t, h.svc.DeleteHabit(ctx, h.user, habit.ID))
	assert.Empty(t, h.kinds(t))
}

func TestStreakResetKeepsLongest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	habit, err := h.svc.CreateHabit(ctx, h.user, HabitInput{Name: "Run", Frequency: "daily"})
	require.NoError(t, err)
	for _, day := range []string{"2026-03-01", "2026-03-02", "2026-03-05"} {
		habit, err = h.svc.CompleteHabit(ctx, h.user, habit.ID, day)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, habit.CurrentStreak)
	assert.Equal(t, 2, habit.LongestStreak)
}

func TestUpdateHabit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	habit, err := h.svc.CreateHabit(ctx, h.user, HabitInput{Name: "Budget review", Frequency: "weekly"})
	require.NoError(t, err)

	_, err = h.svc.UpdateHabit(ctx, h.user, habit.ID, HabitPatch{Frequency: strp("hourly")})
	assertInvalid(t, err, "frequency")

	updated, err := h.svc.UpdateHabit(ctx, h.user, habit.ID, HabitPatch{Name: strp("Money review")})
	require.NoError(t, err)
	assert.Equal(t, "Money review", updated.Name)
	assert.Equal(t, store.FrequencyWeekly, updated.Frequency)
}

// flakyHabitStore fails the first habit completion it sees.
type flakyHabitStore struct {
	*store.MemoryStore
	failed bool
}

func (f *flakyHabitStore) RecordHabitCompletion(ctx context.Context, h *store.Habit, prev *time.Time, l *store.HabitLog) error {
	if !f.failed {
		f.failed = true
		return errors.New("db down")
	}
	return f.MemoryStore.RecordHabitCompletion(ctx, h, prev, l)
}

func TestCompleteHabitRetryAfterFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	clock := func() time.Time { return now }
	d := notify.NewDispatcher(h.store, zaptest.NewLogger(t), notify.WithClock(clock))
	svc := New(&flakyHabitStore{MemoryStore: h.store}, d, zaptest.NewLogger(t), WithClock(clock))
	habit, err := h.svc.CreateHabit(ctx, h.user, HabitInput{Name: "Water plants"})
	require.NoError(t, err)

	_, err = svc.CompleteHabit(ctx, h.user, habit.ID, "")
	require.EqualError(t, err, "db down")

	done, err := svc.CompleteHabit(ctx, h.user, habit.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, done.CurrentStreak)
	assert.Equal(t, date(2026, 3, 10), *done.LastCompleted)

	logs, err := h.svc.HabitLogs(ctx, h.user, habit.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
