// Package http exposes the budgeting engine as a JSON API. Every financial
// read refreshes the user's automation state first; time passing is only
// observed through incoming requests.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"budgeteer/internal/cache"
	"budgeteer/internal/core"
	"budgeteer/internal/log"
	"budgeteer/internal/middleware/ratelimit"
	"budgeteer/internal/middleware/trace"
	"budgeteer/internal/services"
	"budgeteer/internal/storage"
)

type Server struct {
	http.Server

	service *services.BudgetService
	repo    *storage.SQLiteRepository
	logger  *log.Logger

	leaderboardSize  int
	leaderboardCache *cache.LRUCache[[]core.LeaderboardEntry]
	cacheManager     *cache.Manager
	limiter          *ratelimit.Limiter
	shutdownOnce     sync.Once

	// now is the request clock; tests substitute a fixed time.
	now func() time.Time
}

type Config struct {
	Addr              string
	LeaderboardSize   int
	RequestsPerMinute int
}

func NewServer(cfg Config, service *services.BudgetService, repo *storage.SQLiteRepository, logger *log.Logger) *Server {
	s := &Server{
		service:          service,
		repo:             repo,
		logger:           logger.WithComponent(log.ComponentHTTP),
		leaderboardSize:  cfg.LeaderboardSize,
		leaderboardCache: cache.NewLRUCache[[]core.LeaderboardEntry](4, 30*time.Second),
		cacheManager:     cache.NewManager(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		now: time.Now,
	}
	s.cacheManager.Register(s.leaderboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/budget", s.handleBudget)
	mux.HandleFunc("/api/expenses", s.handleExpenses)
	mux.HandleFunc("/api/expenses/update", s.handleUpdateExpense)
	mux.HandleFunc("/api/expenses/delete", s.handleDeleteExpense)
	mux.HandleFunc("/api/fixed-expenses", s.handleRules)
	mux.HandleFunc("/api/fixed-expenses/update", s.handleUpdateRule)
	mux.HandleFunc("/api/fixed-expenses/delete", s.handleDeleteRule)
	mux.HandleFunc("/api/income", s.handleAddIncome)
	mux.HandleFunc("/api/income/increment", s.handleConfigureIncrement)
	mux.HandleFunc("/api/income/reset", s.handleResetIncome)
	mux.HandleFunc("/api/savings-goal", s.handleSavingsGoal)
	mux.HandleFunc("/api/total-savings", s.handleTotalSavings)
	mux.HandleFunc("/api/points", s.handlePoints)
	mux.HandleFunc("/api/badges", s.handleBadges)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/trends", s.handleTrends)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/notifications", s.handleNotifications)

	tracer := trace.NewMiddleware(clientIP, logger)
	limited := s.limiter.Middleware(clientIP)

	s.Server = http.Server{
		Addr:    cfg.Addr,
		Handler: tracer.Middleware(limited(mux)),
	}
	return s
}

// Shutdown stops the HTTP server and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.StopCleanup()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// clientIP resolves the caller address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
