package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lifeadmin-backend/internal/store"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATSPublisherRoundTrip(t *testing.T) {
	server := startTestNATSServer(t)
	pub, err := ConnectNATS(server.ClientURL(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pub.Close()

	events, cancel, err := pub.Subscribe("u1")
	require.NoError(t, err)
	defer cancel()
	require.NoError(t, pub.nc.Flush())

	n := &store.Notification{ID: "n1", UserID: "u1", Kind: KindBillDueSoon, Title: "Bill due soon"}
	require.NoError(t, pub.Publish(context.Background(), "u1", Event{Type: EventUpserted, Notification: n}))
	require.NoError(t, pub.Publish(context.Background(), "u2", Event{Type: EventUpserted}))

	select {
	case data := <-events:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, EventUpserted, ev.Type)
		require.NotNil(t, ev.Notification)
		assert.Equal(t, "n1", ev.Notification.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	select {
	case data := <-events:
		t.Fatalf("unexpected event for another user: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSSubjectPerUser(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(Subject("abc"))
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	pub := NewNATSPublisher(nc, nil)
	require.NoError(t, pub.Publish(context.Background(), "abc", Event{Type: EventResolved, EntityID: "x"}))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "lifeadmin.notifications.abc", msg.Subject)
	assert.Contains(t, string(msg.Data), `"resolved"`)
}

func TestHubCancelAndClose(t *testing.T) {
	hub := NewHub()
	events, cancel, err := hub.Subscribe("u1")
	require.NoError(t, err)

	require.NoError(t, hub.Publish(context.Background(), "u1", Event{Type: EventResolved}))
	assert.Contains(t, string(<-events), "resolved")

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)

	hub.Close()
	_, _, err = hub.Subscribe("u1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, hub.Publish(context.Background(), "u1", Event{}), ErrClosed)
}
