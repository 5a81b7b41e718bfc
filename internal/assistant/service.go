package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"lifeadmin-backend/internal/actions"
	"lifeadmin-backend/internal/logging"
	"lifeadmin-backend/internal/store"
)

const (
	MaxMessageLen = 4000
	titleLen      = 60
)

// Store is the persistence the assistant needs.
type Store interface {
	ListTasks(ctx context.Context, userID string, f store.TaskFilter) ([]store.Task, error)
	ListBills(ctx context.Context, userID string, f store.BillFilter) ([]store.Bill, error)
	ListHabits(ctx context.Context, userID string) ([]store.Habit, error)
	ListDocuments(ctx context.Context, userID string, f store.DocumentFilter) ([]store.Document, error)

	CreateConversation(ctx context.Context, c *store.Conversation) error
	GetConversation(ctx context.Context, userID, id string) (*store.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]store.Conversation, error)
	TouchConversation(ctx context.Context, userID, id string, at time.Time) error
	DeleteConversation(ctx context.Context, userID, id string) error
	AddChatMessage(ctx context.Context, m *store.ChatMessage) error
	ListChatMessages(ctx context.Context, userID, conversationID string, limit int) ([]store.ChatMessage, error)
	AddAIAction(ctx context.Context, a *store.AIAction) error
	ListAIActions(ctx context.Context, userID string, limit int) ([]store.AIAction, error)
}

// Service runs the chat pipeline: gather the user's rows, summarize them, ask
// the provider for a reply, classify the message and persist the exchange.
type Service struct {
	store        Store
	provider     Provider
	fallback     *TemplateProvider
	classifier   *Classifier
	spec         *PromptSpec
	historyLimit int
	log          *zap.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithHistoryLimit(n int) Option {
	return func(s *Service) { s.historyLimit = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService uses the template provider when provider is nil.
func NewService(st Store, spec *PromptSpec, provider Provider, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	fallback := NewTemplateProvider(spec)
	if provider == nil {
		provider = fallback
	}
	s := &Service{
		store:        st,
		provider:     provider,
		fallback:     fallback,
		classifier:   NewClassifier(spec),
		spec:         spec,
		historyLimit: 20,
		log:          log.Named("assistant"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ProviderName() string { return s.provider.Name() }

type ChatInput struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type ChatResult struct {
	ConversationID string  `json:"conversationId"`
	MessageID      string  `json:"messageId"`
	Reply          string  `json:"reply"`
	Intent         Intent  `json:"intent"`
	Summary        Summary `json:"summary"`
	Provider       string  `json:"provider"`
}

func (s *Service) Chat(ctx context.Context, userID string, in ChatInput) (*ChatResult, error) {
	log := logging.For(ctx, s.log)
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, &actions.ValidationError{Field: "message", Message: "is required"}
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return nil, &actions.ValidationError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", MaxMessageLen)}
	}

	conv, err := s.conversation(ctx, userID, in.ConversationID, text)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListChatMessages(ctx, userID, conv.ID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	snap, err := Gather(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	summary := Summarize(snap, now)
	contextText := Render(summary)
	intent := s.classifier.DetectIntent(text)

	req := Request{
		Messages: buildMessages(s.spec.System, contextText, history, text),
		Intent:   intent,
		Summary:  summary,
		Context:  contextText,
	}
	reply, providerName := s.complete(ctx, log, req)

	userMsg := &store.ChatMessage{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           store.RoleUser,
		Content:        text,
		CreatedAt:      now,
	}
	if err := s.store.AddChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	botMsg := &store.ChatMessage{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           store.RoleAssistant,
		Content:        reply,
		CreatedAt:      now.Add(time.Millisecond),
	}
	if err := s.store.AddChatMessage(ctx, botMsg); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}
	if err := s.store.AddAIAction(ctx, &store.AIAction{
		UserID:         userID,
		ConversationID: conv.ID,
		MessageID:      userMsg.ID,
		ActionType:     intent.ActionType,
		EntityType:     intent.EntityType,
		Confidence:     intent.Confidence,
	}); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	if err := s.store.TouchConversation(ctx, userID, conv.ID, botMsg.CreatedAt); err != nil {
		log.Warn("touch conversation failed", zap.String("conversation.id", conv.ID), zap.Error(err))
	}

	chatRequests.WithLabelValues(intent.ActionType, providerName).Inc()
	log.Info("chat handled",
		zap.String("conversation.id", conv.ID),
		zap.String("intent.action", intent.ActionType),
		zap.String("intent.entity", intent.EntityType),
		zap.Float64("intent.confidence", intent.Confidence),
		zap.String("provider", providerName))

	return &ChatResult{
		ConversationID: conv.ID,
		MessageID:      botMsg.ID,
		Reply:          reply,
		Intent:         intent,
		Summary:        summary,
		Provider:       providerName,
	}, nil
}

func (s *Service) conversation(ctx context.Context, userID, id, firstMessage string) (*store.Conversation, error) {
	if id != "" {
		return s.store.GetConversation(ctx, userID, id)
	}
	c := &store.Conversation{UserID: userID, Title: Title(firstMessage)}
	if err := s.store.CreateConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// complete asks the configured provider and falls back to templates when it fails.
func (s *Service) complete(ctx context.Context, log *zap.Logger, req Request) (string, string) {
	start := time.Now()
	reply, err := s.provider.Complete(ctx, req)
	providerLatency.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
	if err == nil {
		return reply, s.provider.Name()
	}
	if s.provider != Provider(s.fallback) {
		providerFailures.WithLabelValues(s.provider.Name()).Inc()
		log.Warn("provider failed, using template reply", zap.String("provider", s.provider.Name()), zap.Error(err))
	}
	reply, ferr := s.fallback.Complete(ctx, req)
	if ferr != nil {
		log.Error("template reply failed", zap.Error(ferr))
		reply = "Sorry, I couldn't put an answer together just now."
	}
	return reply, s.fallback.Name()
}

func buildMessages(system, contextText string, history []store.ChatMessage, text string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{
		Role:    RoleSystem,
		Content: strings.TrimSpace(system) + "\n\nCurrent data:\n" + contextText,
	})
	for _, m := range history {
		role := RoleUser
		if m.Role == store.RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: m.Content})
	}
	return append(msgs, Message{Role: RoleUser, Content: text})
}

// Title derives a conversation title from its first message.
func Title(message string) string {
	t := strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(t) <= titleLen {
		return t
	}
	r := []rune(t)
	return strings.TrimSpace(string(r[:titleLen]))
}

func (s *Service) Conversations(ctx context.Context, userID string) ([]store.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// Messages returns the whole conversation, oldest first.
func (s *Service) Messages(ctx context.Context, userID, conversationID string) ([]store.ChatMessage, error) {
	return s.store.ListChatMessages(ctx, userID, conversationID, 0)
}

func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return s.store.DeleteConversation(ctx, userID, conversationID)
}

func (s *Service) Actions(ctx context.Context, userID string, limit int) ([]store.AIAction, error) {
	return s.store.ListAIActions(ctx, userID, limit)
}

// Dashboard returns the summary without going through chat.
func (s *Service) Dashboard(ctx context.Context, userID string) (Summary, error) {
	snap, err := Gather(ctx, s.store, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(snap, s.now()), nil
}
