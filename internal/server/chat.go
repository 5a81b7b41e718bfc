package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeadmin-backend/internal/assistant"
	"lifeadmin-backend/internal/types"
)

const (
	chatTimeout       = 60 * time.Second
	defaultActionsCap = 50
)

// POST /api/chat
// Body { conversationId?, message }; replies with the assistant turn and the context summary
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()
	res, err := s.assistant.Chat(ctx, userFrom(ctx).ID, assistant.ChatInput{
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	cs, err := s.assistant.Conversations(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"conversations": list(cs)})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.assistant.Messages(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": list(msgs)})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.DeleteConversation(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/ai-actions?limit=
func (s *Server) handleAIActions(w http.ResponseWriter, r *http.Request) {
	acts, err := s.assistant.Actions(r.Context(), userFrom(r.Context()).ID, queryInt(r, "limit", defaultActionsCap))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"actions": list(acts)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.assistant.Dashboard(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}
