package services

import (
	"context"
	"fmt"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/log"
	"budgeteer/internal/storage"
)

// StreakTracker advances the monthly adherence counters. It runs after the
// Evaluator so the current month's ledger is complete, and advances at most
// once per month per user; the month guard is a conditional update in
// storage.
type StreakTracker struct {
	repo          *storage.SQLiteRepository
	discretionary []string
	logger        *log.Logger
}

func NewStreakTracker(repo *storage.SQLiteRepository, discretionary []string, logger *log.Logger) *StreakTracker {
	return &StreakTracker{
		repo:          repo,
		discretionary: discretionary,
		logger:        logger.WithComponent(log.ComponentStreaks),
	}
}

// Evaluate computes current-month adherence and applies the monthly
// transition: a counter increments when its condition held, resets
// otherwise. Under budget requires positive income; the no-discretionary
// counter only advances in months with at least one expense.
func (t *StreakTracker) Evaluate(ctx context.Context, userID int64, now time.Time) (bool, error) {
	month := core.MonthKey(now)

	streak, err := t.repo.GetOrCreateStreak(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("evaluate streak: %w", err)
	}
	if streak.LastEvalMonth == month {
		return false, nil
	}

	acc, err := t.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return false, fmt.Errorf("evaluate streak account: %w", err)
	}
	total, count, err := t.repo.MonthTotal(ctx, userID, month)
	if err != nil {
		return false, fmt.Errorf("evaluate streak totals: %w", err)
	}
	hasDiscretionary, err := t.repo.HasSpendInCategories(ctx, userID, month, t.discretionary)
	if err != nil {
		return false, fmt.Errorf("evaluate streak discretionary: %w", err)
	}

	underBudget := acc.Income.Cents > 0 && total.Cents <= acc.Income.Cents
	noDiscretionary := !hasDiscretionary && count > 0

	advanced, err := t.repo.AdvanceStreakMonth(ctx, userID, underBudget, noDiscretionary, month)
	if err != nil {
		return false, fmt.Errorf("advance streak: %w", err)
	}
	if advanced {
		t.logger.InfoContext(ctx, "advanced monthly streaks",
			log.FieldUserID, userID,
			log.FieldMonth, month,
			"under_budget", underBudget,
			"no_discretionary", noDiscretionary)
	}
	return advanced, nil
}
