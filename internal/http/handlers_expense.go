package http

import (
	"net/http"

	"budgeteer/internal/core"
)

type expenseRequest struct {
	UserID   int64   `json:"user_id"`
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	IsFixed  bool    `json:"is_fixed,omitempty"`
}

// handleExpenses lists (GET) or appends (POST) ledger expenses.
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Catch the month up before reading the ledger.
	if err := s.service.Refresh(r.Context(), userID, s.now()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	expenses, err := s.repo.ListExpenses(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	expense, err := s.service.AddExpense(r.Context(), req.UserID,
		sanitizeInput(req.Name), sanitizeInput(req.Category),
		core.MoneyFromFloat(req.Amount), req.IsFixed, s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.ID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id and id are required")
		return
	}

	err := s.service.UpdateExpense(r.Context(), req.UserID, req.ID,
		sanitizeInput(req.Name), sanitizeInput(req.Category),
		core.MoneyFromFloat(req.Amount), s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		UserID int64 `json:"user_id"`
		ID     int64 `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.ID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id and id are required")
		return
	}

	if err := s.service.DeleteExpense(r.Context(), req.UserID, req.ID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
