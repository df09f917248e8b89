package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeteer/internal/core"
	"budgeteer/internal/log"
	"budgeteer/internal/storage"
)

// BudgetService is the request-facing orchestrator. Every financial read
// goes through Refresh first so stale months are caught up before data is
// returned; user writes go through the validated operations below.
type BudgetService struct {
	repo      *storage.SQLiteRepository
	evaluator *Evaluator
	streaks   *StreakTracker
	badges    *BadgeAwarder
	logger    *log.Logger

	refreshConcurrency int
}

func NewBudgetService(repo *storage.SQLiteRepository, evaluator *Evaluator, streaks *StreakTracker, badges *BadgeAwarder, refreshConcurrency int, logger *log.Logger) *BudgetService {
	if refreshConcurrency < 1 {
		refreshConcurrency = 1
	}
	return &BudgetService{
		repo:               repo,
		evaluator:          evaluator,
		streaks:            streaks,
		badges:             badges,
		refreshConcurrency: refreshConcurrency,
		logger:             logger.WithComponent(log.ComponentAutomation),
	}
}

// Refresh runs the automation pipeline for one user: evaluator, then streak
// tracker, then badge awarder. Streak and badge failures are logged but do
// not fail the request; the evaluator's account access does.
func (s *BudgetService) Refresh(ctx context.Context, userID int64, now time.Time) error {
	if _, err := s.evaluator.CatchUp(ctx, userID, now); err != nil {
		return err
	}
	if _, err := s.streaks.Evaluate(ctx, userID, now); err != nil {
		s.logger.ErrorContext(ctx, "streak evaluation failed",
			log.FieldError, err, log.FieldUserID, userID)
	}
	if _, err := s.badges.Evaluate(ctx, userID, now); err != nil {
		s.logger.ErrorContext(ctx, "badge evaluation failed",
			log.FieldError, err, log.FieldUserID, userID)
	}
	return nil
}

// RefreshAll catches up every known user with bounded concurrency. Used by
// the leaderboard so rankings reflect current months. Individual user
// failures are logged, not fatal.
func (s *BudgetService) RefreshAll(ctx context.Context, now time.Time) error {
	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("refresh all: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.refreshConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := s.Refresh(ctx, id, now); err != nil {
				s.logger.ErrorContext(ctx, "refresh failed for user",
					log.FieldError, err, log.FieldUserID, id)
			}
			return nil
		})
	}
	return g.Wait()
}

// Snapshot refreshes and returns the account summary plus the full ledger.
func (s *BudgetService) Snapshot(ctx context.Context, userID int64, now time.Time) (core.BudgetSnapshot, []core.Expense, error) {
	if err := s.Refresh(ctx, userID, now); err != nil {
		return core.BudgetSnapshot{}, nil, err
	}
	acc, err := s.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return core.BudgetSnapshot{}, nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx, userID)
	if err != nil {
		return core.BudgetSnapshot{}, nil, err
	}
	return core.BudgetSnapshot{
		Income:          acc.Income,
		SavingsGoal:     acc.SavingsGoal,
		TotalSavings:    acc.TotalSavings,
		Duration:        acc.Duration,
		IncrementDay:    acc.IncrementDay,
		IncrementAmount: acc.IncrementAmount,
	}, expenses, nil
}

// AddExpense validates and appends a manual expense, resolving the category
// by name when no id was given and computing the income percentage.
func (s *BudgetService) AddExpense(ctx context.Context, userID int64, name, category string, amount core.Money, isFixed bool, now time.Time) (core.Expense, error) {
	expense := core.Expense{
		UserID:    userID,
		Name:      name,
		Category:  category,
		Amount:    amount,
		IsFixed:   isFixed,
		CreatedAt: now,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}

	cat, err := s.repo.ResolveCategory(ctx, category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve category %q: %w", category, err)
	}
	expense.CategoryID = cat.ID
	expense.Icon = cat.Icon

	acc, err := s.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return core.Expense{}, err
	}
	expense.Percentage = amount.PercentOf(acc.Income)

	if err := s.repo.InsertExpense(ctx, &expense); err != nil {
		return core.Expense{}, err
	}
	return expense, nil
}

// UpdateExpense rewrites an expense's editable fields and refreshes its
// income percentage.
func (s *BudgetService) UpdateExpense(ctx context.Context, userID, id int64, name, category string, amount core.Money, now time.Time) error {
	expense := core.Expense{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Category: category,
		Amount:   amount,
	}
	if err := expense.Validate(); err != nil {
		return err
	}
	cat, err := s.repo.ResolveCategory(ctx, category)
	if err != nil {
		return fmt.Errorf("resolve category %q: %w", category, err)
	}
	expense.CategoryID = cat.ID

	acc, err := s.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return err
	}
	expense.Percentage = amount.PercentOf(acc.Income)
	return s.repo.UpdateExpense(ctx, expense)
}

func (s *BudgetService) DeleteExpense(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteExpense(ctx, userID, id)
}

// AddRule validates and stores a recurring rule. The rule posts on the next
// refresh once its due day arrives; when the day has already passed this
// month, that is immediately.
func (s *BudgetService) AddRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	if err := s.repo.CreateRule(ctx, &rule); err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

// UpdateRule rewrites a rule. Storage clears the posted marker, so an
// already-due rule re-posts with its new shape on the next refresh.
func (s *BudgetService) UpdateRule(ctx context.Context, rule core.RecurringRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateRule(ctx, rule)
}

func (s *BudgetService) DeleteRule(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteRule(ctx, userID, id)
}

func (s *BudgetService) ListRules(ctx context.Context, userID int64, now time.Time) ([]core.RecurringRule, error) {
	if err := s.Refresh(ctx, userID, now); err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, userID)
}

// AddIncome applies a one-time income addition and recomputes percentages
// against the new income.
func (s *BudgetService) AddIncome(ctx context.Context, userID int64, amount core.Money, now time.Time) (core.Money, error) {
	if err := amount.Validate(); err != nil {
		return core.Money{}, err
	}
	if _, err := s.repo.GetOrCreateAccount(ctx, userID, now); err != nil {
		return core.Money{}, err
	}
	income, err := s.repo.AddToIncome(ctx, userID, amount, now)
	if err != nil {
		return core.Money{}, err
	}
	if err := s.repo.RecomputePercentages(ctx, userID, income); err != nil {
		return core.Money{}, err
	}
	return income, nil
}

// ConfigureIncrement installs or rewrites the monthly increment rule. The
// month marker is preserved: if this month was already applied it stays
// applied, and an old marker never blocks the current month.
func (s *BudgetService) ConfigureIncrement(ctx context.Context, userID int64, day int, amount core.Money, now time.Time) error {
	if day < core.MinDueDay || day > core.MaxDueDay {
		return core.ErrInvalidDueDay
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	acc, err := s.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return err
	}
	return s.repo.UpdateIncrementSettings(ctx, userID, day, amount, acc.Income, acc.LastIncrementMonth, now)
}

// ResetIncome zeroes the account and every stored percentage. The account
// row survives; so do the ledger and streaks.
func (s *BudgetService) ResetIncome(ctx context.Context, userID int64, now time.Time) error {
	if _, err := s.repo.GetOrCreateAccount(ctx, userID, now); err != nil {
		return err
	}
	if err := s.repo.ResetAccount(ctx, userID, now); err != nil {
		return err
	}
	return s.repo.RecomputePercentages(ctx, userID, core.Money{})
}

func (s *BudgetService) SetSavingsGoal(ctx context.Context, userID int64, amount core.Money, now time.Time) error {
	if amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if _, err := s.repo.GetOrCreateAccount(ctx, userID, now); err != nil {
		return err
	}
	return s.repo.SetSavingsGoal(ctx, userID, amount, now)
}

func (s *BudgetService) SetTotalSavings(ctx context.Context, userID int64, amount core.Money, now time.Time) error {
	if amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if _, err := s.repo.GetOrCreateAccount(ctx, userID, now); err != nil {
		return err
	}
	return s.repo.SetTotalSavings(ctx, userID, amount, now)
}

// Points refreshes and returns the user's gamification counters.
func (s *BudgetService) Points(ctx context.Context, userID int64, now time.Time) (core.Streak, error) {
	if err := s.Refresh(ctx, userID, now); err != nil {
		return core.Streak{}, err
	}
	return s.repo.GetOrCreateStreak(ctx, userID)
}

// Badges refreshes and returns the user's badge ledger.
func (s *BudgetService) Badges(ctx context.Context, userID int64, now time.Time) ([]core.Badge, error) {
	if err := s.Refresh(ctx, userID, now); err != nil {
		return nil, err
	}
	return s.repo.ListBadges(ctx, userID)
}

// Leaderboard catches every user up, then ranks by total points.
func (s *BudgetService) Leaderboard(ctx context.Context, limit int, now time.Time) ([]core.LeaderboardEntry, error) {
	if err := s.RefreshAll(ctx, now); err != nil {
		return nil, err
	}
	return s.repo.Leaderboard(ctx, limit)
}

// Trends refreshes and returns per-month spend totals, oldest first.
func (s *BudgetService) Trends(ctx context.Context, userID int64, months int, now time.Time) ([]core.TrendPoint, error) {
	if err := s.Refresh(ctx, userID, now); err != nil {
		return nil, err
	}
	return s.repo.MonthlyTrends(ctx, userID, months)
}

func (s *BudgetService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.repo.ListCategories(ctx)
}
