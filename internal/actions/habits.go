package actions

import (
	"context"
	"fmt"
	"time"

	"lifeadmin-backend/internal/store"
)

type HabitInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

type HabitPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Frequency   *string `json:"frequency"`
}

func parseFrequency(v string) (store.Frequency, error) {
	switch f := store.Frequency(v); f {
	case "":
		return store.FrequencyDaily, nil
	case store.FrequencyDaily, store.FrequencyWeekly:
		return f, nil
	}
	return "", invalid("frequency", "must be daily or weekly")
}

func (s *Service) CreateHabit(ctx context.Context, userID string, in HabitInput) (*store.Habit, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := checkText("description", in.Description)
	if err != nil {
		return nil, err
	}
	freq, err := parseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	h := &store.Habit{UserID: userID, Name: name, Description: desc, Frequency: freq}
	if err := s.store.CreateHabit(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) ListHabits(ctx context.Context, userID string) ([]store.Habit, error) {
	return s.store.ListHabits(ctx, userID)
}

func (s *Service) UpdateHabit(ctx context.Context, userID, id string, p HabitPatch) (*store.Habit, error) {
	h, err := s.store.GetHabit(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		if h.Name, err = requireName("name", *p.Name); err != nil {
			return nil, err
		}
	}
	if p.Description != nil {
		if h.Description, err = checkText("description", *p.Description); err != nil {
			return nil, err
		}
	}
	if p.Frequency != nil {
		if h.Frequency, err = parseFrequency(*p.Frequency); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateHabit(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) DeleteHabit(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteHabit(ctx, userID, id); err != nil {
		return err
	}
	s.notified(ctx, "delete habit", s.notify.HabitDeleted(ctx, userID, id))
	return nil
}

func (s *Service) HabitLogs(ctx context.Context, userID, id string, limit int) ([]store.HabitLog, error) {
	return s.store.ListHabitLogs(ctx, userID, id, limit)
}

// CompleteHabit logs a completion for on (today when empty) and advances the streak.
func (s *Service) CompleteHabit(ctx context.Context, userID, id, on string) (*store.Habit, error) {
	today := store.DayOf(s.now())
	day := today
	if on != "" {
		d, err := ParseDate("date", on)
		if err != nil {
			return nil, err
		}
		day = store.DayOf(*d)
		if day.After(today) {
			return nil, invalid("date", "cannot be in the future")
		}
	}

	h, err := s.store.GetHabit(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	streak, err := NextStreak(h, day)
	if err != nil {
		return nil, err
	}

	prev := h.LastCompleted
	h.CurrentStreak = streak
	if streak > h.LongestStreak {
		h.LongestStreak = streak
	}
	h.LastCompleted = &day
	if err := s.store.RecordHabitCompletion(ctx, h, prev, &store.HabitLog{CompletedOn: day}); err != nil {
		return nil, err
	}
	s.notified(ctx, "complete habit", s.notify.HabitCompleted(ctx, h))
	return h, nil
}

// NextStreak returns the streak after completing h on day. Daily habits
// continue when the previous completion was the day before and weekly habits
// when it fell in the previous ISO week. A second completion in the same
// period is a conflict.
func NextStreak(h *store.Habit, day time.Time) (int, error) {
	if h.LastCompleted == nil {
		return 1, nil
	}
	last := store.DayOf(*h.LastCompleted)
	day = store.DayOf(day)
	if day.Before(last) {
		return 0, invalid("date", "is before the last completion")
	}

	if h.Frequency == store.FrequencyWeekly {
		if sameISOWeek(day, last) {
			return 0, fmt.Errorf("habit already completed this week: %w", store.ErrConflict)
		}
		if sameISOWeek(day.AddDate(0, 0, -7), last) {
			return h.CurrentStreak + 1, nil
		}
		return 1, nil
	}

	if day.Equal(last) {
		return 0, fmt.Errorf("habit already completed today: %w", store.ErrConflict)
	}
	if day.AddDate(0, 0, -1).Equal(last) {
		return h.CurrentStreak + 1, nil
	}
	return 1, nil
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
