package http

import (
	"net/http"

	"budgeteer/internal/core"
)

type ruleRequest struct {
	UserID   int64   `json:"user_id"`
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Icon     string  `json:"icon,omitempty"`
	Amount   float64 `json:"amount"`
	DueDay   int     `json:"due_day"`
}

type ruleResponse struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Icon            string     `json:"icon,omitempty"`
	Amount          core.Money `json:"amount"`
	DueDay          int        `json:"due_day"`
	LastPostedMonth string     `json:"last_posted_month,omitempty"`
}

func toRuleResponse(r core.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:              r.ID,
		Name:            r.Name,
		Category:        r.Category,
		Icon:            r.Icon,
		Amount:          r.Amount,
		DueDay:          r.DueDay,
		LastPostedMonth: r.LastPostedMonth,
	}
}

// handleRules lists (GET) or creates (POST) recurring expense rules. The
// list path refreshes first, so a newly due rule shows as posted.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRules(w, r)
	case http.MethodPost:
		s.createRule(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rules, err := s.service.ListRules(r.Context(), userID, s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toRuleResponse(rule))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	rule, err := s.service.AddRule(r.Context(), core.RecurringRule{
		UserID:   req.UserID,
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Icon:     sanitizeInput(req.Icon),
		Amount:   core.MoneyFromFloat(req.Amount),
		DueDay:   req.DueDay,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.ID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id and id are required")
		return
	}

	err := s.service.UpdateRule(r.Context(), core.RecurringRule{
		ID:       req.ID,
		UserID:   req.UserID,
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Icon:     sanitizeInput(req.Icon),
		Amount:   core.MoneyFromFloat(req.Amount),
		DueDay:   req.DueDay,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
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

	if err := s.service.DeleteRule(r.Context(), req.UserID, req.ID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
