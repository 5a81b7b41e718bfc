package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeadmin-backend/internal/notify"
	"lifeadmin-backend/internal/store"
)

func TestNotificationStream(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Router())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.session)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, ": connected", lines.Text())

	// the subscription is live once the greeting arrives
	require.NoError(t, env.hub.Publish(ctx, "someone-else", notify.Event{Type: notify.EventResolved}))
	require.NoError(t, env.hub.Publish(ctx, env.user, notify.Event{
		Type:         notify.EventUpserted,
		Notification: &store.Notification{ID: "n1", Kind: notify.KindTaskOverdue, Title: "Task overdue"},
	}))

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if data != "" {
			break
		}
	}
	assert.Equal(t, "notification", event)
	assert.Contains(t, data, `"type":"upserted"`)
	assert.Contains(t, data, `"kind":"task_overdue"`)
	assert.NotContains(t, data, "resolved")
}

func TestNotificationStreamUnavailable(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Events = nil })
	rec := env.do(t, http.MethodGet, "/api/notifications/stream", env.session, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotificationStreamAfterHubClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.hub.Close()
	rec := env.do(t, http.MethodGet, "/api/notifications/stream", env.session, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
