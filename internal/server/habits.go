package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeadmin-backend/internal/actions"
	"lifeadmin-backend/internal/types"
)

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.actions.ListHabits(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"habits": list(habits)})
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var in actions.HabitInput
	if !s.decode(w, r, &in) {
		return
	}
	h, err := s.actions.CreateHabit(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var p actions.HabitPatch
	if !s.decode(w, r, &p) {
		return
	}
	h, err := s.actions.UpdateHabit(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

// POST /api/habits/{id}/complete
// Optional body { date: "YYYY-MM-DD" } backfills a past day
func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	var req types.CompleteHabitRequest
	if !s.decode(w, r, &req) {
		return
	}
	h, err := s.actions.CompleteHabit(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"), req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

// GET /api/habits/{id}/logs?limit=
func (s *Server) handleHabitLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.actions.HabitLogs(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"), queryInt(r, "limit", 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": list(logs)})
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.DeleteHabit(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
