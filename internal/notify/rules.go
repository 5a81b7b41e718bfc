package notify

import (
	"fmt"
	"time"

	"lifeadmin-backend/internal/store"
)

const (
	KindTaskOverdue      = "task_overdue"
	KindTaskDueSoon      = "task_due_soon"
	KindBillOverdue      = "bill_overdue"
	KindBillDueSoon      = "bill_due_soon"
	KindHabitMilestone   = "habit_milestone"
	KindDocumentExpired  = "document_expired"
	KindDocumentExpiring = "document_expiring"
)

const (
	EntityTask     = "task"
	EntityBill     = "bill"
	EntityHabit    = "habit"
	EntityDocument = "document"
)

const (
	billDueSoonDays      = 3
	documentExpiringDays = 30
)

// Milestones are the streak lengths that earn a habit notification.
var Milestones = []int{3, 7, 14, 30, 60, 100, 365}

var (
	taskKinds     = []string{KindTaskOverdue, KindTaskDueSoon}
	billKinds     = []string{KindBillOverdue, KindBillDueSoon}
	documentKinds = []string{KindDocumentExpired, KindDocumentExpiring}
)

// Alert is the notification an entity currently warrants.
type Alert struct {
	Kind    string
	Title   string
	Message string
	// Key overrides the default dedupe key suffix (the kind).
	Key string
}

// DedupeKey identifies the single live notification for an entity and kind.
func DedupeKey(entityType, entityID, suffix string) string {
	return entityType + ":" + entityID + ":" + suffix
}

func daysBetween(from, to time.Time) int {
	return int(store.DayOf(to).Sub(store.DayOf(from)).Hours() / 24)
}

func formatDay(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}

func inDays(n int) string {
	switch n {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", n)
	}
}

// TaskAlert returns nil when the task needs no notification.
func TaskAlert(t *store.Task, today time.Time) *Alert {
	if t.Status == store.TaskDone || t.DueDate == nil {
		return nil
	}
	days := daysBetween(today, *t.DueDate)
	switch {
	case days < 0:
		return &Alert{
			Kind:    KindTaskOverdue,
			Title:   "Task overdue",
			Message: fmt.Sprintf("%q was due on %s", t.Title, formatDay(*t.DueDate)),
		}
	case days <= 1:
		return &Alert{
			Kind:    KindTaskDueSoon,
			Title:   "Task due soon",
			Message: fmt.Sprintf("%q is due %s", t.Title, inDays(days)),
		}
	}
	return nil
}

func BillAlert(b *store.Bill, today time.Time) *Alert {
	if b.Status != store.BillUnpaid {
		return nil
	}
	amount := fmt.Sprintf("%.2f %s", b.Amount, b.Currency)
	days := daysBetween(today, b.DueDate)
	switch {
	case days < 0:
		return &Alert{
			Kind:    KindBillOverdue,
			Title:   "Bill overdue",
			Message: fmt.Sprintf("%s (%s) was due on %s", b.Name, amount, formatDay(b.DueDate)),
		}
	case days <= billDueSoonDays:
		return &Alert{
			Kind:    KindBillDueSoon,
			Title:   "Bill due soon",
			Message: fmt.Sprintf("%s (%s) is due %s", b.Name, amount, inDays(days)),
		}
	}
	return nil
}

func DocumentAlert(d *store.Document, today time.Time) *Alert {
	if d.ExpiryDate == nil {
		return nil
	}
	days := daysBetween(today, *d.ExpiryDate)
	switch {
	case days < 0:
		return &Alert{
			Kind:    KindDocumentExpired,
			Title:   "Document expired",
			Message: fmt.Sprintf("%s expired on %s", d.Name, formatDay(*d.ExpiryDate)),
		}
	case days <= documentExpiringDays:
		return &Alert{
			Kind:    KindDocumentExpiring,
			Title:   "Document expiring",
			Message: fmt.Sprintf("%s expires %s", d.Name, inDays(days)),
		}
	}
	return nil
}

// HabitAlert fires only when the current streak lands exactly on a milestone.
func HabitAlert(h *store.Habit) *Alert {
	for _, m := range Milestones {
		if h.CurrentStreak != m {
			continue
		}
		unit := "day"
		if h.Frequency == store.FrequencyWeekly {
			unit = "week"
		}
		return &Alert{
			Kind:    KindHabitMilestone,
			Title:   "Streak milestone",
			Message: fmt.Sprintf("%s: %d %s streak", h.Name, m, unit),
			Key:     fmt.Sprintf("%s:%d", KindHabitMilestone, m),
		}
	}
	return nil
}
