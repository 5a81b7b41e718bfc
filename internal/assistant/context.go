package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lifeadmin-backend/internal/store"
)

const (
	billsWindowDays     = 7
	documentsWindowDays = 30
	maxListed           = 5
)

// Snapshot is every row the assistant reasons over for one user.
type Snapshot struct {
	Tasks     []store.Task
	Bills     []store.Bill
	Habits    []store.Habit
	Documents []store.Document
}

// Gather loads the four row sets concurrently.
func Gather(ctx context.Context, s Store, userID string) (*Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Tasks, err = s.ListTasks(ctx, userID, store.TaskFilter{})
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Bills, err = s.ListBills(ctx, userID, store.BillFilter{})
		if err != nil {
			return fmt.Errorf("load bills: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Habits, err = s.ListHabits(ctx, userID)
		if err != nil {
			return fmt.Errorf("load habits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Documents, err = s.ListDocuments(ctx, userID, store.DocumentFilter{})
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Item is one row named in a summary list.
type Item struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Date     *time.Time `json:"date,omitempty"`
	Amount   float64    `json:"amount,omitempty"`
	Currency string     `json:"currency,omitempty"`
}

// Summary is the aggregate view of a Snapshot on a given day.
type Summary struct {
	Date              time.Time          `json:"date"`
	PendingTasks      int                `json:"pendingTasks"`
	OverdueTasks      []Item             `json:"overdueTasks"`
	DueTodayTasks     []Item             `json:"dueTodayTasks"`
	HighPriorityTasks []Item             `json:"highPriorityTasks"`
	UnpaidBills       int                `json:"unpaidBills"`
	UnpaidTotals      map[string]float64 `json:"unpaidTotals"`
	UpcomingBills     []Item             `json:"upcomingBills"`
	OverdueBills      []Item             `json:"overdueBills"`
	HabitsDoneToday   int                `json:"habitsDoneToday"`
	HabitsTotal       int                `json:"habitsTotal"`
	BestStreak        int                `json:"bestStreak"`
	BestStreakHabit   string             `json:"bestStreakHabit,omitempty"`
	ExpiringDocuments []Item             `json:"expiringDocuments"`
	ExpiredDocuments  []Item             `json:"expiredDocuments"`
}

// Summarize computes the Summary of snap as of now.
func Summarize(snap *Snapshot, now time.Time) Summary {
	today := store.DayOf(now)
	tomorrow := today.AddDate(0, 0, 1)
	s := Summary{
		Date:              today,
		OverdueTasks:      []Item{},
		DueTodayTasks:     []Item{},
		HighPriorityTasks: []Item{},
		UnpaidTotals:      map[string]float64{},
		UpcomingBills:     []Item{},
		OverdueBills:      []Item{},
		ExpiringDocuments: []Item{},
		ExpiredDocuments:  []Item{},
	}

	for _, t := range snap.Tasks {
		if t.Status == store.TaskDone {
			continue
		}
		s.PendingTasks++
		item := Item{ID: t.ID, Name: t.Title, Date: t.DueDate}
		if t.DueDate != nil {
			switch {
			case t.DueDate.Before(today):
				s.OverdueTasks = append(s.OverdueTasks, item)
			case t.DueDate.Before(tomorrow):
				s.DueTodayTasks = append(s.DueTodayTasks, item)
			}
		}
		if t.Priority == store.PriorityHigh {
			s.HighPriorityTasks = append(s.HighPriorityTasks, item)
		}
	}

	billsWindow := today.AddDate(0, 0, billsWindowDays+1)
	for _, b := range snap.Bills {
		if b.Status != store.BillUnpaid {
			continue
		}
		s.UnpaidBills++
		currency := b.Currency
		if currency == "" {
			currency = "USD"
		}
		s.UnpaidTotals[currency] += b.Amount
		due := b.DueDate
		item := Item{ID: b.ID, Name: b.Name, Date: &due, Amount: b.Amount, Currency: currency}
		switch {
		case due.Before(today):
			s.OverdueBills = append(s.OverdueBills, item)
		case due.Before(billsWindow):
			s.UpcomingBills = append(s.UpcomingBills, item)
		}
	}

	for _, h := range snap.Habits {
		s.HabitsTotal++
		if h.LastCompleted != nil && store.DayOf(*h.LastCompleted).Equal(today) {
			s.HabitsDoneToday++
		}
		if h.CurrentStreak > s.BestStreak {
			s.BestStreak = h.CurrentStreak
			s.BestStreakHabit = h.Name
		}
	}

	docsWindow := today.AddDate(0, 0, documentsWindowDays+1)
	for _, d := range snap.Documents {
		if d.ExpiryDate == nil {
			continue
		}
		item := Item{ID: d.ID, Name: d.Name, Date: d.ExpiryDate}
		switch {
		case d.ExpiryDate.Before(today):
			s.ExpiredDocuments = append(s.ExpiredDocuments, item)
		case d.ExpiryDate.Before(docsWindow):
			s.ExpiringDocuments = append(s.ExpiringDocuments, item)
		}
	}
	return s
}

// Render writes the summary as the plain-text context block sent to the model.
func Render(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s.\n", s.Date.Format("Monday, January 2, 2006"))

	fmt.Fprintf(&b, "Tasks: %d pending, %d overdue, %d due today, %d high priority.\n",
		s.PendingTasks, len(s.OverdueTasks), len(s.DueTodayTasks), len(s.HighPriorityTasks))
	writeItems(&b, "Overdue tasks", s.OverdueTasks, "due")
	writeItems(&b, "Due today", s.DueTodayTasks, "")
	writeItems(&b, "High priority", s.HighPriorityTasks, "due")

	if s.UnpaidBills == 0 {
		b.WriteString("Bills: nothing unpaid.\n")
	} else {
		fmt.Fprintf(&b, "Bills: %d unpaid totalling %s.\n", s.UnpaidBills, formatTotals(s.UnpaidTotals))
	}
	writeItems(&b, fmt.Sprintf("Due in the next %d days", billsWindowDays), s.UpcomingBills, "due")
	writeItems(&b, "Overdue bills", s.OverdueBills, "due")

	if s.HabitsTotal == 0 {
		b.WriteString("Habits: none tracked.\n")
	} else {
		fmt.Fprintf(&b, "Habits: %d of %d done today", s.HabitsDoneToday, s.HabitsTotal)
		if s.BestStreak > 0 {
			fmt.Fprintf(&b, ", best streak %d (%s)", s.BestStreak, s.BestStreakHabit)
		}
		b.WriteString(".\n")
	}

	writeItems(&b, fmt.Sprintf("Documents expiring within %d days", documentsWindowDays), s.ExpiringDocuments, "expires")
	writeItems(&b, "Expired documents", s.ExpiredDocuments, "expired")
	return b.String()
}

func writeItems(b *strings.Builder, heading string, items []Item, dateLabel string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for i, it := range items {
		if i == maxListed {
			fmt.Fprintf(b, "- ...and %d more\n", len(items)-maxListed)
			break
		}
		b.WriteString("- ")
		b.WriteString(it.Name)
		if it.Currency != "" {
			fmt.Fprintf(b, " %.2f %s", it.Amount, it.Currency)
		}
		if it.Date != nil && dateLabel != "" {
			fmt.Fprintf(b, " (%s %s)", dateLabel, it.Date.UTC().Format("Jan 2"))
		}
		b.WriteString("\n")
	}
}

func formatTotals(totals map[string]float64) string {
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	parts := make([]string, 0, len(currencies))
	for _, c := range currencies {
		parts = append(parts, fmt.Sprintf("%.2f %s", totals[c], c))
	}
	return strings.Join(parts, ", ")
}
