package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"lifeadmin-backend/internal/store"
)

const (
	EventUpserted = "upserted"
	EventResolved = "resolved"
)

// Event is the payload fanned out to live clients.
type Event struct {
	Type         string              `json:"type"`
	Notification *store.Notification `json:"notification,omitempty"`
	EntityType   string              `json:"entityType,omitempty"`
	EntityID     string              `json:"entityId,omitempty"`
}

// Subject is the NATS subject carrying a user's notification events.
func Subject(userID string) string {
	return "lifeadmin.notifications." + userID
}

// Publisher fans out notification events.
type Publisher interface {
	Publish(ctx context.Context, userID string, ev Event) error
}

// Subscriber streams a user's events until cancel is called.
type Subscriber interface {
	Subscribe(userID string) (events <-chan []byte, cancel func(), err error)
}

var ErrClosed = errors.New("notification stream closed")

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

// ConnectNATS dials url and keeps reconnecting for the life of the process.
func ConnectNATS(url string, log *zap.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("lifeadmin"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSPublisher(nc, log), nil
}

func NewNATSPublisher(nc *nats.Conn, log *zap.Logger) *NATSPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, log: log.Named("nats")}
}

func (p *NATSPublisher) Publish(_ context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(userID), data)
}

func (p *NATSPublisher) Subscribe(userID string) (<-chan []byte, func(), error) {
	msgs := make(chan *nats.Msg, 16)
	sub, err := p.nc.ChanSubscribe(Subject(userID), msgs)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan []byte, 16)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(out)
		for {
			select {
			case m := <-msgs:
				select {
				case out <- m.Data:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return out, cancel, nil
}

func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain failed", zap.Error(err))
	}
}

// Hub is the in-process fan-out used when NATS is not configured.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan []byte]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// Publish drops events for subscribers whose buffer is full.
func (h *Hub) Publish(_ context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for ch := range h.subs[userID] {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(userID string) (<-chan []byte, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrClosed
	}
	ch := make(chan []byte, 16)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan []byte]struct{})
	}
	h.subs[userID][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[userID][ch]; ok {
				delete(h.subs[userID], ch)
				if len(h.subs[userID]) == 0 {
					delete(h.subs, userID)
				}
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

// Close ends every open subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for userID, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, userID)
	}
}
