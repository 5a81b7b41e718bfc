package actions

import (
	"context"
	"time"

	"lifeadmin-backend/internal/store"
)

type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

// TaskPatch holds the fields to change; nil leaves a field untouched and an
// empty DueDate clears it.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
}

func parsePriority(v string) (store.Priority, error) {
	switch p := store.Priority(v); p {
	case "":
		return store.PriorityMedium, nil
	case store.PriorityLow, store.PriorityMedium, store.PriorityHigh:
		return p, nil
	}
	return "", invalid("priority", "must be one of low, medium, high")
}

func parseTaskStatus(v string) (store.TaskStatus, error) {
	switch st := store.TaskStatus(v); st {
	case "":
		return store.TaskTodo, nil
	case store.TaskTodo, store.TaskInProgress, store.TaskDone:
		return st, nil
	}
	return "", invalid("status", "must be one of todo, in_progress, done")
}

func (s *Service) CreateTask(ctx context.Context, userID string, in TaskInput) (*store.Task, error) {
	title, err := requireName("title", in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := checkText("description", in.Description)
	if err != nil {
		return nil, err
	}
	category, err := checkText("category", in.Category)
	if err != nil {
		return nil, err
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	status, err := parseTaskStatus(in.Status)
	if err != nil {
		return nil, err
	}
	due, err := ParseDate("dueDate", in.DueDate)
	if err != nil {
		return nil, err
	}

	t := &store.Task{
		UserID:      userID,
		Title:       title,
		Description: desc,
		Category:    category,
		Priority:    priority,
		Status:      status,
		DueDate:     due,
	}
	setCompletion(t, s.now())
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	s.notified(ctx, "create task", s.notify.TaskChanged(ctx, t))
	return t, nil
}

// setCompletion keeps CompletedAt in step with Status.
func setCompletion(t *store.Task, now time.Time) {
	if t.Status == store.TaskDone {
		if t.CompletedAt == nil {
			at := now
			t.CompletedAt = &at
		}
		return
	}
	t.CompletedAt = nil
}

func (s *Service) GetTask(ctx context.Context, userID, id string) (*store.Task, error) {
	return s.store.GetTask(ctx, userID, id)
}

func (s *Service) ListTasks(ctx context.Context, userID, status, category string) ([]store.Task, error) {
	f := store.TaskFilter{Category: category}
	if status != "" {
		st, err := parseTaskStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	return s.store.ListTasks(ctx, userID, f)
}

func (s *Service) UpdateTask(ctx context.Context, userID, id string, p TaskPatch) (*store.Task, error) {
	t, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if t.Title, err = requireName("title", *p.Title); err != nil {
			return nil, err
		}
	}
	if p.Description != nil {
		if t.Description, err = checkText("description", *p.Description); err != nil {
			return nil, err
		}
	}
	if p.Category != nil {
		if t.Category, err = checkText("category", *p.Category); err != nil {
			return nil, err
		}
	}
	if p.Priority != nil {
		if t.Priority, err = parsePriority(*p.Priority); err != nil {
			return nil, err
		}
	}
	if p.Status != nil {
		if t.Status, err = parseTaskStatus(*p.Status); err != nil {
			return nil, err
		}
	}
	if p.DueDate != nil {
		if t.DueDate, err = ParseDate("dueDate", *p.DueDate); err != nil {
			return nil, err
		}
	}
	setCompletion(t, s.now())

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	s.notified(ctx, "update task", s.notify.TaskChanged(ctx, t))
	return t, nil
}

// CompleteTask marks the task done. Completing a finished task is a no-op.
func (s *Service) CompleteTask(ctx context.Context, userID, id string) (*store.Task, error) {
	t, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == store.TaskDone {
		return t, nil
	}
	t.Status = store.TaskDone
	setCompletion(t, s.now())
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	s.notified(ctx, "complete task", s.notify.TaskChanged(ctx, t))
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTask(ctx, userID, id); err != nil {
		return err
	}
	s.notified(ctx, "delete task", s.notify.TaskDeleted(ctx, userID, id))
	return nil
}
