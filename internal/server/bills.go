package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeadmin-backend/internal/actions"
)

// GET /api/bills?status=unpaid|paid
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.actions.ListBills(r.Context(), userFrom(r.Context()).ID, r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"bills": list(bills)})
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var in actions.BillInput
	if !s.decode(w, r, &in) {
		return
	}
	b, err := s.actions.CreateBill(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.actions.GetBill(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var p actions.BillPatch
	if !s.decode(w, r, &p) {
		return
	}
	b, err := s.actions.UpdateBill(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

// POST /api/bills/{id}/pay
// Returns { bill, next? } where next is the following occurrence of a recurring bill
func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	res, err := s.actions.PayBill(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.actions.DeleteBill(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
