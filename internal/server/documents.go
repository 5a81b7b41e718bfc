package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeadmin-backend/internal/actions"
)

// GET /api/documents?category=
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.actions.ListDocuments(r.Context(), userFrom(r.Context()).ID, r.URL.Query().Get("category"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"documents": list(docs)})
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var in actions.DocumentInput
	if !s.decode(w, r, &in) {
		return
	}
	d, err := s.actions.CreateDocument(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := s.actions.GetDocument(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var p actions.DocumentPatch
	if !s.decode(w, r, &p) {
		return
	}
	d, err := s.actions.UpdateDocument(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.DeleteDocument(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
