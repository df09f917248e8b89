package http

import (
	"net/http"
	"strconv"
	"time"

	"budgeteer/internal/core"
)

type expenseResponse struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Icon         string     `json:"icon,omitempty"`
	Amount       core.Money `json:"amount"`
	Percentage   float64    `json:"percentage"`
	IsFixed      bool       `json:"is_fixed"`
	IsAutoPosted bool       `json:"is_auto_posted"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:           e.ID,
		Name:         e.Name,
		Category:     e.Category,
		Icon:         e.Icon,
		Amount:       e.Amount,
		Percentage:   e.Percentage,
		IsFixed:      e.IsFixed,
		IsAutoPosted: e.IsAutoPosted,
		CreatedAt:    e.CreatedAt,
	}
}

type budgetResponse struct {
	Income          core.Money        `json:"income"`
	SavingsGoal     core.Money        `json:"savings_goal"`
	TotalSavings    core.Money        `json:"total_savings"`
	Duration        string            `json:"duration"`
	IncrementDay    int               `json:"increment_day,omitempty"`
	IncrementAmount core.Money        `json:"increment_amount"`
	Expenses        []expenseResponse `json:"expenses"`
}

// handleBudget returns the refreshed account snapshot with the full ledger.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, expenses, err := s.service.Snapshot(r.Context(), userID, s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := budgetResponse{
		Income:          snap.Income,
		SavingsGoal:     snap.SavingsGoal,
		TotalSavings:    snap.TotalSavings,
		Duration:        snap.Duration,
		IncrementDay:    snap.IncrementDay,
		IncrementAmount: snap.IncrementAmount,
		Expenses:        make([]expenseResponse, 0, len(expenses)),
	}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type trendResponse struct {
	Month string     `json:"month"`
	Total core.Money `json:"total"`
}

// handleTrends returns per-month spend totals, oldest first. Defaults to the
// last six months.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 24 {
			months = n
		}
	}

	trends, err := s.service.Trends(r.Context(), userID, months, s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := make([]trendResponse, 0, len(trends))
	for _, p := range trends {
		resp = append(resp, trendResponse{Month: p.Month, Total: p.Total})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	type categoryResponse struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon,omitempty"`
	}
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	notifications, err := s.repo.ListNotifications(r.Context(), userID, 50)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	type notificationResponse struct {
		ID        int64     `json:"id"`
		Kind      string    `json:"kind"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"created_at"`
	}
	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{ID: n.ID, Kind: n.Kind, Message: n.Message, CreatedAt: n.CreatedAt})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// handleReady verifies the database is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListCategories(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"db":     err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
