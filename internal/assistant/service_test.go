package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lifeadmin-backend/internal/actions"
	"lifeadmin-backend/internal/store"
)

type recordingProvider struct {
	reply string
	err   error
	got   []Request
}

func (p *recordingProvider) Name() string { return "fake" }

func (p *recordingProvider) Complete(_ context.Context, req Request) (string, error) {
	p.got = append(p.got, req)
	return p.reply, p.err
}

func newChatService(t *testing.T, p Provider, opts ...Option) (*Service, *store.MemoryStore, string) {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.SetClock(func() time.Time { return fixedNow })
	u, err := ms.UpsertUser(context.Background(), "chat@example.com", "")
	require.NoError(t, err)
	// Each chat turn reads the clock once; advancing it keeps turns ordered.
	tick := fixedNow
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewService(ms, mustSpec(t), p, zaptest.NewLogger(t), opts...), ms, u.ID
}

func TestChatPersistsExchange(t *testing.T) {
	ctx := context.Background()
	p := &recordingProvider{reply: "Rent is due Friday."}
	svc, ms, user := newChatService(t, p)
	require.NoError(t, ms.CreateBill(ctx, &store.Bill{UserID: user, Name: "Rent", Amount: 900, Currency: "USD",
		DueDate: *dayOffset(3), Status: store.BillUnpaid}))

	res, err := svc.Chat(ctx, user, ChatInput{Message: "  Which bills are due this week?  "})
	require.NoError(t, err)
	assert.Equal(t, "Rent is due Friday.", res.Reply)
	assert.Equal(t, "fake", res.Provider)
	assert.Equal(t, Intent{ActionType: ActionQuery, EntityType: EntityBill, Confidence: 0.9}, res.Intent)
	assert.Equal(t, 1, res.Summary.UnpaidBills)

	conv, err := ms.GetConversation(ctx, user, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Which bills are due this week?", conv.Title)

	msgs, err := svc.Messages(ctx, user, res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "Which bills are due this week?", msgs[0].Content)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, res.MessageID, msgs[1].ID)

	acts, err := svc.Actions(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, ActionQuery, acts[0].ActionType)
	assert.Equal(t, EntityBill, acts[0].EntityType)
	assert.Equal(t, msgs[0].ID, acts[0].MessageID)

	require.Len(t, p.got, 1)
	sent := p.got[0].Messages
	require.Len(t, sent, 2)
	assert.Equal(t, RoleSystem, sent[0].Role)
	assert.Contains(t, sent[0].Content, "Current data:")
	assert.Contains(t, sent[0].Content, "Rent 900.00 USD")
	assert.Equal(t, Message{Role: RoleUser, Content: "Which bills are due this week?"}, sent[1])
}

func TestChatSendsRecentHistory(t *testing.T) {
	ctx := context.Background()
	p := &recordingProvider{reply: "ok"}
	svc, _, user := newChatService(t, p, WithHistoryLimit(2))

	first, err := svc.Chat(ctx, user, ChatInput{Message: "hello"})
	require.NoError(t, err)
	_, err = svc.Chat(ctx, user, ChatInput{ConversationID: first.ConversationID, Message: "second"})
	require.NoError(t, err)
	_, err = svc.Chat(ctx, user, ChatInput{ConversationID: first.ConversationID, Message: "third"})
	require.NoError(t, err)

	last := p.got[2].Messages
	// system, two history messages, new message
	require.Len(t, last, 4)
	assert.Equal(t, Message{Role: RoleUser, Content: "second"}, last[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "ok"}, last[2])
	assert.Equal(t, Message{Role: RoleUser, Content: "third"}, last[3])

	convs, err := svc.Conversations(ctx, user)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestChatFallsBackToTemplate(t *testing.T) {
	ctx := context.Background()
	p := &recordingProvider{err: errors.New("upstream 503")}
	svc, _, user := newChatService(t, p)

	res, err := svc.Chat(ctx, user, ChatInput{Message: "give me a summary"})
	require.NoError(t, err)
	assert.Equal(t, "template", res.Provider)
	assert.Contains(t, res.Reply, "Here is where things stand.")
	assert.Contains(t, res.Reply, "Tasks: 0 pending")
}

func TestChatValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newChatService(t, nil)

	_, err := svc.Chat(ctx, user, ChatInput{Message: "   "})
	var ve *actions.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "message", ve.Field)

	_, err = svc.Chat(ctx, user, ChatInput{Message: strings.Repeat("a", MaxMessageLen+1)})
	require.ErrorAs(t, err, &ve)

	_, err = svc.Chat(ctx, user, ChatInput{ConversationID: "missing", Message: "hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChatWithoutProviderUsesTemplates(t *testing.T) {
	svc, _, user := newChatService(t, nil)
	assert.Equal(t, "template", svc.ProviderName())

	res, err := svc.Chat(context.Background(), user, ChatInput{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "template", res.Provider)
	assert.Contains(t, res.Reply, "I can summarize")
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newChatService(t, &recordingProvider{reply: "sure"})
	res, err := svc.Chat(ctx, user, ChatInput{Message: "pay rent"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, user, res.ConversationID))
	_, err = svc.Messages(ctx, user, res.ConversationID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	acts, err := svc.Actions(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, ActionPay, acts[0].ActionType)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, ms, user := newChatService(t, nil)
	require.NoError(t, ms.CreateTask(ctx, &store.Task{UserID: user, Title: "a", Status: store.TaskTodo, DueDate: dayOffset(-1)}))

	s, err := svc.Dashboard(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, s.PendingTasks)
	assert.Len(t, s.OverdueTasks, 1)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "short one", Title("  short \n one "))
	long := strings.Repeat("é", 70)
	assert.Equal(t, strings.Repeat("é", 60), Title(long))
}
