package http

import (
	"context"
	"net/http"
	"time"

	"budgeteer/internal/core"
)

// handleAddIncome applies a one-time income addition.
func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		UserID int64   `json:"user_id"`
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	income, err := s.service.AddIncome(r.Context(), req.UserID, core.MoneyFromFloat(req.Amount), s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]core.Money{"income": income})
}

// handleConfigureIncrement installs the monthly increment rule. An increment
// already applied this month is not re-applied.
func (s *Server) handleConfigureIncrement(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		UserID int64   `json:"user_id"`
		Day    int     `json:"day"`
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	err := s.service.ConfigureIncrement(r.Context(), req.UserID, req.Day, core.MoneyFromFloat(req.Amount), s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "configured"})
}

// handleResetIncome zeroes the account without deleting it.
func (s *Server) handleResetIncome(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.service.ResetIncome(r.Context(), req.UserID, s.now()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleSavingsGoal(w http.ResponseWriter, r *http.Request) {
	s.handleSavingsUpdate(w, r, s.service.SetSavingsGoal)
}

func (s *Server) handleTotalSavings(w http.ResponseWriter, r *http.Request) {
	s.handleSavingsUpdate(w, r, s.service.SetTotalSavings)
}

// handleSavingsUpdate is the shared body of the two savings setters.
func (s *Server) handleSavingsUpdate(w http.ResponseWriter, r *http.Request, update func(context.Context, int64, core.Money, time.Time) error) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		UserID int64   `json:"user_id"`
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := update(r.Context(), req.UserID, core.MoneyFromFloat(req.Amount), s.now()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
