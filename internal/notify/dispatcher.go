package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifeadmin-backend/internal/store"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	UpsertNotification(ctx context.Context, n *store.Notification) error
	ResolveNotifications(ctx context.Context, userID, entityType, entityID string, kinds ...string) (int, error)
	ListOpenTasksDueBefore(ctx context.Context, before time.Time) ([]store.Task, error)
	ListUnpaidBillsDueBefore(ctx context.Context, before time.Time) ([]store.Bill, error)
	ListDocumentsExpiringBefore(ctx context.Context, before time.Time) ([]store.Document, error)
}

// Dispatcher turns entity state into notifications. Every mutation of a task,
// bill, habit or document is reported here, and Sweep re-evaluates rows whose
// state changes with the calendar alone.
type Dispatcher struct {
	store Store
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Dispatcher)

func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.pub = p }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(s Store, log *zap.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{store: s, log: log.Named("notify"), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) today() time.Time {
	return store.DayOf(d.now())
}

func (d *Dispatcher) TaskChanged(ctx context.Context, t *store.Task) error {
	return d.apply(ctx, t.UserID, EntityTask, t.ID, taskKinds, TaskAlert(t, d.today()))
}

func (d *Dispatcher) TaskDeleted(ctx context.Context, userID, id string) error {
	return d.resolve(ctx, userID, EntityTask, id)
}

func (d *Dispatcher) BillChanged(ctx context.Context, b *store.Bill) error {
	return d.apply(ctx, b.UserID, EntityBill, b.ID, billKinds, BillAlert(b, d.today()))
}

func (d *Dispatcher) BillDeleted(ctx context.Context, userID, id string) error {
	return d.resolve(ctx, userID, EntityBill, id)
}

func (d *Dispatcher) DocumentChanged(ctx context.Context, doc *store.Document) error {
	return d.apply(ctx, doc.UserID, EntityDocument, doc.ID, documentKinds, DocumentAlert(doc, d.today()))
}

func (d *Dispatcher) DocumentDeleted(ctx context.Context, userID, id string) error {
	return d.resolve(ctx, userID, EntityDocument, id)
}

// HabitCompleted records a milestone notification. Earlier milestones stay.
func (d *Dispatcher) HabitCompleted(ctx context.Context, h *store.Habit) error {
	alert := HabitAlert(h)
	if alert == nil {
		return nil
	}
	return d.upsert(ctx, h.UserID, EntityHabit, h.ID, alert)
}

func (d *Dispatcher) HabitDeleted(ctx context.Context, userID, id string) error {
	return d.resolve(ctx, userID, EntityHabit, id)
}

// apply resolves every kind in kinds except the alert's own, then upserts the alert.
func (d *Dispatcher) apply(ctx context.Context, userID, entityType, entityID string, kinds []string, alert *Alert) error {
	stale := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if alert == nil || k != alert.Kind {
			stale = append(stale, k)
		}
	}
	if err := d.resolve(ctx, userID, entityType, entityID, stale...); err != nil {
		return err
	}
	if alert == nil {
		return nil
	}
	return d.upsert(ctx, userID, entityType, entityID, alert)
}

func (d *Dispatcher) resolve(ctx context.Context, userID, entityType, entityID string, kinds ...string) error {
	n, err := d.store.ResolveNotifications(ctx, userID, entityType, entityID, kinds...)
	if err != nil {
		return fmt.Errorf("resolve %s %s notifications: %w", entityType, entityID, err)
	}
	if n == 0 {
		return nil
	}
	notificationsResolved.WithLabelValues(entityType).Add(float64(n))
	d.publish(ctx, userID, Event{Type: EventResolved, EntityType: entityType, EntityID: entityID})
	return nil
}

func (d *Dispatcher) upsert(ctx context.Context, userID, entityType, entityID string, alert *Alert) error {
	key := alert.Key
	if key == "" {
		key = alert.Kind
	}
	n := &store.Notification{
		UserID:     userID,
		Kind:       alert.Kind,
		Title:      alert.Title,
		Message:    alert.Message,
		EntityType: entityType,
		EntityID:   entityID,
		DedupeKey:  DedupeKey(entityType, entityID, key),
	}
	if err := d.store.UpsertNotification(ctx, n); err != nil {
		return fmt.Errorf("upsert %s notification: %w", alert.Kind, err)
	}
	notificationsUpserted.WithLabelValues(alert.Kind).Inc()
	d.publish(ctx, userID, Event{Type: EventUpserted, Notification: n, EntityType: entityType, EntityID: entityID})
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, userID string, ev Event) {
	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(ctx, userID, ev); err != nil {
		d.log.Warn("publish notification event failed",
			zap.String("user.id", userID), zap.String("event", ev.Type), zap.Error(err))
	}
}

// SweepResult counts the rows a sweep evaluated.
type SweepResult struct {
	Tasks     int `json:"tasks"`
	Bills     int `json:"bills"`
	Documents int `json:"documents"`
	Failed    int `json:"failed"`
}

// Sweep re-evaluates every open task, unpaid bill and expiring document of
// every user. A failure on one row is logged and the sweep moves on.
func (d *Dispatcher) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	var res SweepResult
	today := d.today()

	tasks, err := d.store.ListOpenTasksDueBefore(ctx, today.AddDate(0, 0, 2))
	if err != nil {
		return res, fmt.Errorf("sweep tasks: %w", err)
	}
	for i := range tasks {
		res.Tasks++
		if err := d.TaskChanged(ctx, &tasks[i]); err != nil {
			res.Failed++
			d.log.Error("sweep task failed", zap.String("task.id", tasks[i].ID), zap.Error(err))
		}
	}

	bills, err := d.store.ListUnpaidBillsDueBefore(ctx, today.AddDate(0, 0, billDueSoonDays+1))
	if err != nil {
		return res, fmt.Errorf("sweep bills: %w", err)
	}
	for i := range bills {
		res.Bills++
		if err := d.BillChanged(ctx, &bills[i]); err != nil {
			res.Failed++
			d.log.Error("sweep bill failed", zap.String("bill.id", bills[i].ID), zap.Error(err))
		}
	}

	docs, err := d.store.ListDocumentsExpiringBefore(ctx, today.AddDate(0, 0, documentExpiringDays+1))
	if err != nil {
		return res, fmt.Errorf("sweep documents: %w", err)
	}
	for i := range docs {
		res.Documents++
		if err := d.DocumentChanged(ctx, &docs[i]); err != nil {
			res.Failed++
			d.log.Error("sweep document failed", zap.String("document.id", docs[i].ID), zap.Error(err))
		}
	}

	d.log.Info("notification sweep finished",
		zap.Int("tasks", res.Tasks), zap.Int("bills", res.Bills),
		zap.Int("documents", res.Documents), zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Run sweeps every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
				d.log.Error("notification sweep failed", zap.Error(err))
			}
		}
	}
}
