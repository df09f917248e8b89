package services

import (
	"context"
	"fmt"
	"time"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	"budgeteer/internal/log"
	"budgeteer/internal/storage"
)

// BadgeState is everything a badge predicate may look at.
type BadgeState struct {
	AccountAgeMonths      int
	TotalSavings          core.Money
	SavingsGoal           core.Money
	MonthsUnderBudget     int
	MonthsNoDiscretionary int
	MonthExpenseCount     int
	MonthHasDiscretionary bool
}

// BadgeSpec is one catalog entry.
type BadgeSpec struct {
	Name      string
	Points    int64
	Predicate func(BadgeState) bool
}

// Catalog is the fixed badge table. Predicates only ever gate the first
// award; a badge is never revoked once earned.
var Catalog = []BadgeSpec{
	{
		Name:   "First Month",
		Points: 50,
		Predicate: func(s BadgeState) bool {
			return s.AccountAgeMonths >= 1
		},
	},
	{
		Name:   "Smart Saver",
		Points: 100,
		Predicate: func(s BadgeState) bool {
			return s.AccountAgeMonths >= 1 &&
				s.SavingsGoal.Cents > 0 &&
				s.TotalSavings.Cents >= s.SavingsGoal.Cents
		},
	},
	{
		Name:   "Budget Pro",
		Points: 300,
		Predicate: func(s BadgeState) bool {
			return s.MonthsUnderBudget >= 3
		},
	},
	{
		Name:   "Zero Waste",
		Points: 500,
		Predicate: func(s BadgeState) bool {
			return !s.MonthHasDiscretionary &&
				s.MonthExpenseCount > 0 &&
				s.MonthsNoDiscretionary >= 1
		},
	},
	{
		Name:   "Financial Guru",
		Points: 600,
		Predicate: func(s BadgeState) bool {
			return s.MonthsUnderBudget >= 6
		},
	},
	{
		Name:   "Savings Master",
		Points: 1000,
		Predicate: func(s BadgeState) bool {
			return s.TotalSavings.Cents >= 100_000*100
		},
	},
}

// BadgeAwarder evaluates the catalog against current account and streak
// state and awards whatever is newly earned. Awards are unique per
// (user, badge); total points only ever grow.
type BadgeAwarder struct {
	repo   *storage.SQLiteRepository
	events EventPublisher
	logger *log.Logger

	discretionary []string
}

func NewBadgeAwarder(repo *storage.SQLiteRepository, events EventPublisher, discretionary []string, logger *log.Logger) *BadgeAwarder {
	return &BadgeAwarder{
		repo:          repo,
		events:        events,
		discretionary: discretionary,
		logger:        logger.WithComponent(log.ComponentBadges),
	}
}

// Evaluate awards every catalog badge whose predicate holds and is not held
// yet, returning the names of new awards. Failures on one badge do not block
// the rest.
func (a *BadgeAwarder) Evaluate(ctx context.Context, userID int64, now time.Time) ([]string, error) {
	state, err := a.buildState(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	month := core.MonthKey(now)

	var awarded []string
	for _, spec := range Catalog {
		if !spec.Predicate(state) {
			continue
		}
		won, err := a.repo.AwardBadge(ctx, userID, spec.Name, now)
		if err != nil {
			a.logger.ErrorContext(ctx, "failed to award badge",
				log.FieldError, err, log.FieldUserID, userID, log.FieldBadge, spec.Name)
			continue
		}
		if !won {
			continue
		}
		if err := a.repo.AddPoints(ctx, userID, spec.Points); err != nil {
			a.logger.ErrorContext(ctx, "failed to add badge points",
				log.FieldError, err, log.FieldUserID, userID, log.FieldBadge, spec.Name)
		}
		awarded = append(awarded, spec.Name)
		a.logger.InfoContext(ctx, "awarded badge",
			log.FieldUserID, userID,
			log.FieldBadge, spec.Name,
			log.FieldPoints, spec.Points)
		a.publish(ctx, amqp.NewBadgeAwardedEvent(userID, month, spec.Name, spec.Points))
	}
	return awarded, nil
}

func (a *BadgeAwarder) buildState(ctx context.Context, userID int64, now time.Time) (BadgeState, error) {
	acc, err := a.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return BadgeState{}, fmt.Errorf("badge state account: %w", err)
	}
	streak, err := a.repo.GetOrCreateStreak(ctx, userID)
	if err != nil {
		return BadgeState{}, fmt.Errorf("badge state streak: %w", err)
	}
	month := core.MonthKey(now)
	_, count, err := a.repo.MonthTotal(ctx, userID, month)
	if err != nil {
		return BadgeState{}, fmt.Errorf("badge state totals: %w", err)
	}
	hasDiscretionary, err := a.repo.HasSpendInCategories(ctx, userID, month, a.discretionary)
	if err != nil {
		return BadgeState{}, fmt.Errorf("badge state discretionary: %w", err)
	}

	return BadgeState{
		AccountAgeMonths:      acc.AgeMonths(now),
		TotalSavings:          acc.TotalSavings,
		SavingsGoal:           acc.SavingsGoal,
		MonthsUnderBudget:     streak.MonthsUnderBudget,
		MonthsNoDiscretionary: streak.MonthsNoDiscretionary,
		MonthExpenseCount:     count,
		MonthHasDiscretionary: hasDiscretionary,
	}, nil
}

func (a *BadgeAwarder) publish(ctx context.Context, event *amqp.AutomationEvent) {
	if a.events == nil {
		return
	}
	if err := a.events.PublishEvent(ctx, event); err != nil {
		a.logger.WarnContext(ctx, "failed to publish badge event",
			log.FieldError, err, log.FieldUserID, event.UserID, log.FieldBadge, event.Name)
	}
}
