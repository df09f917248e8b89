package http

import (
	"net/http"
	"time"
)

// handlePoints returns the refreshed streak counters and total points.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	streak, err := s.service.Points(r.Context(), userID, s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_points":            streak.TotalPoints,
		"months_under_budget":     streak.MonthsUnderBudget,
		"months_no_discretionary": streak.MonthsNoDiscretionary,
	})
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, err := queryUserID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	badges, err := s.service.Badges(r.Context(), userID, s.now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	type badgeResponse struct {
		Name      string    `json:"name"`
		AwardedAt time.Time `json:"awarded_at"`
	}
	resp := make([]badgeResponse, 0, len(badges))
	for _, b := range badges {
		resp = append(resp, badgeResponse{Name: b.Name, AwardedAt: b.AwardedAt})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleLeaderboard ranks users by total points after catching every user
// up. The result is cached briefly; a full catch-up across all users is the
// most expensive read in the service.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	const cacheKey = "leaderboard"
	entries, ok := s.leaderboardCache.Get(cacheKey)
	if !ok {
		var err error
		entries, err = s.service.Leaderboard(r.Context(), s.leaderboardSize, s.now())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.leaderboardCache.Set(cacheKey, entries)
	}

	type entryResponse struct {
		Rank              int    `json:"rank"`
		FirstName         string `json:"first_name"`
		LastName          string `json:"last_name"`
		TotalPoints       int64  `json:"total_points"`
		MonthsUnderBudget int    `json:"months_under_budget"`
	}
	resp := make([]entryResponse, 0, len(entries))
	for i, e := range entries {
		resp = append(resp, entryResponse{
			Rank:              i + 1,
			FirstName:         e.FirstName,
			LastName:          e.LastName,
			TotalPoints:       e.TotalPoints,
			MonthsUnderBudget: e.MonthsUnderBudget,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
