// Package services holds the automation engine: the evaluator that catches
// up income increments and recurring expense postings, the streak tracker,
// and the badge awarder.
package services

import (
	"time"

	"budgeteer/internal/core"
)

// IncrementDue reports whether the account's income increment should apply
// at now: a rule is configured, its day has arrived, and this month has not
// been applied yet. The decision is pure; the atomic month guard lives in
// storage.
func IncrementDue(acc core.BudgetAccount, now time.Time) bool {
	if !acc.HasIncrementRule() {
		return false
	}
	if now.Day() < acc.IncrementDay {
		return false
	}
	return acc.LastIncrementMonth != core.MonthKey(now)
}

// RuleDue reports whether a recurring rule should post at now. A rule missed
// earlier in the month is still due; that is the catch-up behavior.
func RuleDue(rule core.RecurringRule, now time.Time) bool {
	if now.Day() < rule.DueDay {
		return false
	}
	return rule.LastPostedMonth != core.MonthKey(now)
}
