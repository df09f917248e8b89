package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgeteer/internal/amqp"
	"budgeteer/internal/cache"
	"budgeteer/internal/core"
	"budgeteer/internal/log"
	"budgeteer/internal/storage"
)

// EventPublisher publishes automation events. A nil publisher disables
// event delivery; automation never fails because the broker is away.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.AutomationEvent) error
}

// Evaluator catches up a user's account with everything the passage of time
// owes it: the monthly income increment and any recurring expenses whose due
// day has arrived. It is invoked at the start of every read path; there is
// no scheduler.
type Evaluator struct {
	repo       *storage.SQLiteRepository
	events     EventPublisher
	categories *cache.LRUCache[core.Category]
	logger     *log.Logger
}

// CatchUpResult summarizes one evaluation pass.
type CatchUpResult struct {
	IncrementApplied bool
	PostedExpenses   int
	SkippedRules     int
}

func NewEvaluator(repo *storage.SQLiteRepository, events EventPublisher, logger *log.Logger) *Evaluator {
	return &Evaluator{
		repo:       repo,
		events:     events,
		categories: cache.NewLRUCache[core.Category](64, 10*time.Minute),
		logger:     logger.WithComponent(log.ComponentAutomation),
	}
}

// CatchUp applies the income increment if its day has arrived and this month
// is unapplied, posts every due recurring rule exactly once for the month,
// and recomputes expense percentages when income changed. Re-running within
// the same month is a no-op: the month guards are atomic conditional updates
// in storage, so concurrent requests cannot double-apply.
//
// Per-rule failures are logged and skipped; a rule whose category cannot be
// resolved keeps its unposted marker and is retried on the next request.
func (e *Evaluator) CatchUp(ctx context.Context, userID int64, now time.Time) (CatchUpResult, error) {
	var result CatchUpResult

	acc, err := e.repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		return result, fmt.Errorf("catch up account: %w", err)
	}

	month := core.MonthKey(now)
	income := acc.Income

	// Step A: income increment.
	if IncrementDue(acc, now) {
		applied, err := e.repo.ApplyIncomeIncrement(ctx, userID, acc.IncrementAmount, month, now)
		if err != nil {
			return result, fmt.Errorf("apply income increment: %w", err)
		}
		if applied {
			result.IncrementApplied = true
			income = core.Money{Cents: acc.Income.Cents + acc.IncrementAmount.Cents}
			e.logger.InfoContext(ctx, "applied income increment",
				log.FieldUserID, userID,
				log.FieldMonth, month,
				log.FieldAmountCents, acc.IncrementAmount.Cents)
			e.publish(ctx, amqp.NewIncomeIncrementedEvent(userID, month, acc.IncrementAmount.Cents))
		}
	}

	// Step B: recurring expense posting.
	due, err := e.repo.ListDueRules(ctx, userID, now.Day(), month)
	if err != nil {
		return result, fmt.Errorf("list due rules: %w", err)
	}
	for _, rule := range due {
		posted, err := e.postRule(ctx, rule, income, month, now)
		if err != nil {
			result.SkippedRules++
			e.logger.ErrorContext(ctx, "skipping recurring rule",
				log.FieldError, err,
				log.FieldUserID, userID,
				log.FieldRuleID, rule.ID,
				log.FieldCategory, rule.Category)
			continue
		}
		if posted {
			result.PostedExpenses++
		}
	}

	// Step C: percentage recompute after an income change.
	if result.IncrementApplied {
		if err := e.repo.RecomputePercentages(ctx, userID, income); err != nil {
			return result, fmt.Errorf("recompute percentages: %w", err)
		}
	}

	return result, nil
}

// postRule resolves the rule's category, claims the month, and appends the
// expense. Claiming before inserting makes posting at-most-once: a lost
// insert surfaces in the log rather than as a duplicate charge.
func (e *Evaluator) postRule(ctx context.Context, rule core.RecurringRule, income core.Money, month string, now time.Time) (bool, error) {
	category, err := e.resolveCategory(ctx, rule.Category)
	if err != nil {
		return false, fmt.Errorf("resolve category %q: %w", rule.Category, err)
	}

	claimed, err := e.repo.ClaimRulePosting(ctx, rule.ID, month)
	if err != nil {
		return false, fmt.Errorf("claim posting: %w", err)
	}
	if !claimed {
		// Another request posted this rule for the month first.
		return false, nil
	}

	expense := core.Expense{
		UserID:       rule.UserID,
		CategoryID:   category.ID,
		Name:         rule.Name,
		Amount:       rule.Amount,
		Percentage:   rule.Amount.PercentOf(income),
		IsFixed:      true,
		IsAutoPosted: true,
		CreatedAt:    now,
	}
	if err := e.repo.InsertExpense(ctx, &expense); err != nil {
		return false, fmt.Errorf("insert expense: %w", err)
	}

	e.logger.InfoContext(ctx, "posted recurring expense",
		log.FieldUserID, rule.UserID,
		log.FieldRuleID, rule.ID,
		log.FieldExpenseID, expense.ID,
		log.FieldMonth, month,
		log.FieldAmountCents, rule.Amount.Cents)
	e.publish(ctx, amqp.NewExpensePostedEvent(rule.UserID, month, rule.Name, rule.Amount.Cents))
	return true, nil
}

func (e *Evaluator) resolveCategory(ctx context.Context, name string) (core.Category, error) {
	key := cacheKey(name)
	if c, ok := e.categories.Get(key); ok {
		return c, nil
	}
	c, err := e.repo.ResolveCategory(ctx, name)
	if err != nil {
		return core.Category{}, err
	}
	e.categories.Set(key, c)
	return c, nil
}

// cacheKey normalizes a category name the same way the lookup does.
func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (e *Evaluator) publish(ctx context.Context, event *amqp.AutomationEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishEvent(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish automation event",
			log.FieldError, err, "kind", event.Kind, log.FieldUserID, event.UserID)
	}
}
