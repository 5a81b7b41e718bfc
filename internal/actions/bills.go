package actions

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"lifeadmin-backend/internal/store"
)

type BillInput struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	DueDate    string  `json:"dueDate"`
	Category   string  `json:"category"`
	Recurrence string  `json:"recurrence"`
	Notes      string  `json:"notes"`
}

type BillPatch struct {
	Name       *string  `json:"name"`
	Amount     *float64 `json:"amount"`
	Currency   *string  `json:"currency"`
	DueDate    *string  `json:"dueDate"`
	Category   *string  `json:"category"`
	Recurrence *string  `json:"recurrence"`
	Notes      *string  `json:"notes"`
}

// PayResult is the paid bill and, for recurring bills, the next occurrence.
type PayResult struct {
	Bill *store.Bill `json:"bill"`
	Next *store.Bill `json:"next,omitempty"`
}

func parseRecurrence(v string) (store.Recurrence, error) {
	switch r := store.Recurrence(v); r {
	case "":
		return store.RecurNone, nil
	case store.RecurNone, store.RecurWeekly, store.RecurMonthly, store.RecurQuarterly, store.RecurYearly:
		return r, nil
	}
	return "", invalid("recurrence", "must be one of none, weekly, monthly, quarterly, yearly")
}

func checkAmount(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, invalid("amount", "must be zero or more")
	}
	return math.Round(v*100) / 100, nil
}

func parseCurrency(v string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return defaultCurr, nil
	}
	if len(v) != 3 || strings.Trim(v, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return "", invalid("currency", "must be a three letter code")
	}
	return v, nil
}

func requireDate(field, v string) (time.Time, error) {
	d, err := ParseDate(field, v)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, invalid(field, "is required")
	}
	return *d, nil
}

func (s *Service) CreateBill(ctx context.Context, userID string, in BillInput) (*store.Bill, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}
	amount, err := checkAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	currency, err := parseCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	due, err := requireDate("dueDate", in.DueDate)
	if err != nil {
		return nil, err
	}
	category, err := checkText("category", in.Category)
	if err != nil {
		return nil, err
	}
	recurrence, err := parseRecurrence(in.Recurrence)
	if err != nil {
		return nil, err
	}
	notes, err := checkText("notes", in.Notes)
	if err != nil {
		return nil, err
	}

	b := &store.Bill{
		UserID:     userID,
		Name:       name,
		Amount:     amount,
		Currency:   currency,
		DueDate:    due,
		Category:   category,
		Recurrence: recurrence,
		Status:     store.BillUnpaid,
		Notes:      notes,
	}
	if err := s.store.CreateBill(ctx, b); err != nil {
		return nil, err
	}
	s.notified(ctx, "create bill", s.notify.BillChanged(ctx, b))
	return b, nil
}

func (s *Service) GetBill(ctx context.Context, userID, id string) (*store.Bill, error) {
	return s.store.GetBill(ctx, userID, id)
}

func (s *Service) ListBills(ctx context.Context, userID, status string) ([]store.Bill, error) {
	var f store.BillFilter
	switch st := store.BillStatus(status); st {
	case "":
	case store.BillPaid, store.BillUnpaid:
		f.Status = st
	default:
		return nil, invalid("status", "must be paid or unpaid")
	}
	return s.store.ListBills(ctx, userID, f)
}

func (s *Service) UpdateBill(ctx context.Context, userID, id string, p BillPatch) (*store.Bill, error) {
	b, err := s.store.GetBill(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		if b.Name, err = requireName("name", *p.Name); err != nil {
			return nil, err
		}
	}
	if p.Amount != nil {
		if b.Amount, err = checkAmount(*p.Amount); err != nil {
			return nil, err
		}
	}
	if p.Currency != nil {
		if b.Currency, err = parseCurrency(*p.Currency); err != nil {
			return nil, err
		}
	}
	if p.DueDate != nil {
		if b.DueDate, err = requireDate("dueDate", *p.DueDate); err != nil {
			return nil, err
		}
	}
	if p.Category != nil {
		if b.Category, err = checkText("category", *p.Category); err != nil {
			return nil, err
		}
	}
	if p.Recurrence != nil {
		if b.Recurrence, err = parseRecurrence(*p.Recurrence); err != nil {
			return nil, err
		}
	}
	if p.Notes != nil {
		if b.Notes, err = checkText("notes", *p.Notes); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	s.notified(ctx, "update bill", s.notify.BillChanged(ctx, b))
	return b, nil
}

// PayBill marks the bill paid and, when it recurs, creates the next unpaid
// occurrence. Paying an already paid bill is a conflict, and only the request
// that wins the paid transition schedules the next bill.
func (s *Service) PayBill(ctx context.Context, userID, id string) (*PayResult, error) {
	b, err := s.store.MarkBillPaid(ctx, userID, id, s.now())
	if err != nil {
		return nil, err
	}
	s.notified(ctx, "pay bill", s.notify.BillChanged(ctx, b))

	res := &PayResult{Bill: b}
	if b.Recurrence == store.RecurNone || b.Recurrence == "" {
		return res, nil
	}
	next := &store.Bill{
		UserID:     userID,
		Name:       b.Name,
		Amount:     b.Amount,
		Currency:   b.Currency,
		DueDate:    NextDueDate(b.DueDate, b.Recurrence),
		Category:   b.Category,
		Recurrence: b.Recurrence,
		Status:     store.BillUnpaid,
		Notes:      b.Notes,
	}
	if err := s.store.CreateBill(ctx, next); err != nil {
		return nil, fmt.Errorf("create next bill: %w", err)
	}
	s.notified(ctx, "schedule next bill", s.notify.BillChanged(ctx, next))
	res.Next = next
	return res, nil
}

func (s *Service) DeleteBill(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteBill(ctx, userID, id); err != nil {
		return err
	}
	s.notified(ctx, "delete bill", s.notify.BillDeleted(ctx, userID, id))
	return nil
}

// NextDueDate advances due by one recurrence period. Month based periods
// clamp to the last day of the target month, so Jan 31 becomes Feb 28.
func NextDueDate(due time.Time, r store.Recurrence) time.Time {
	switch r {
	case store.RecurWeekly:
		return due.AddDate(0, 0, 7)
	case store.RecurMonthly:
		return addMonths(due, 1)
	case store.RecurQuarterly:
		return addMonths(due, 3)
	case store.RecurYearly:
		return addMonths(due, 12)
	}
	return due
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
