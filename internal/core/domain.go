package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// MinDueDay and MaxDueDay bound the day-of-month for increment and
	// recurring rules. A due day past the end of a short month fires on the
	// first request of the following month instead.
	MinDueDay = 1
	MaxDueDay = 31

	// DefaultDuration is the budget period recorded on lazily created accounts.
	DefaultDuration = "monthly"
)

type (
	Money struct {
		Cents int64
	}

	// BudgetAccount holds one user's budget state. Accounts are created
	// lazily with all-zero values on first access and never deleted; a
	// reset zeroes the fields instead.
	BudgetAccount struct {
		UserID             int64
		Income             Money
		SavingsGoal        Money
		TotalSavings       Money
		Duration           string
		IncrementDay       int    // 0 when no increment rule is configured
		IncrementAmount    Money  // zero when no increment rule is configured
		LastIncrementMonth string // month key, empty until first application
		CreatedAt          time.Time
	}

	// RecurringRule is a template that posts one expense on its due day each
	// month. Category is stored by name and resolved case-insensitively at
	// posting time.
	RecurringRule struct {
		ID              int64
		UserID          int64
		Name            string
		Amount          Money
		Category        string
		Icon            string
		DueDay          int
		LastPostedMonth string // month key, empty until first posting
	}

	// Expense is an append-only ledger record. Percentage is the share of
	// account income at the time of the last recompute, rounded to one
	// decimal place.
	Expense struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		Category     string
		Icon         string
		Name         string
		Amount       Money
		Percentage   float64
		IsFixed      bool
		IsAutoPosted bool
		CreatedAt    time.Time
	}

	// Streak holds the per-user gamification counters. TotalPoints is
	// monotonically non-decreasing; the month counters advance at most once
	// per month, guarded by LastEvalMonth.
	Streak struct {
		UserID                int64
		TotalPoints           int64
		MonthsUnderBudget     int
		MonthsNoDiscretionary int
		LastEvalMonth         string
	}

	// Badge is an immutable achievement, unique per (user, name).
	Badge struct {
		ID        int64
		UserID    int64
		Name      string
		AwardedAt time.Time
	}

	Category struct {
		ID   int64
		Name string
		Icon string
	}

	User struct {
		ID        int64
		FirstName string
		LastName  string
		Email     string
		CreatedAt time.Time
	}

	// Notification is a user-visible record written by the event worker.
	Notification struct {
		ID        int64
		UserID    int64
		Kind      string
		Message   string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDueDay = errors.New("invalid due day")
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyCategory = errors.New("empty category")
	ErrNotFound      = errors.New("not found")
)

// MonthKey returns the year-month identifier ("2006-01") used to detect
// "already processed this month".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// HasIncrementRule reports whether the account carries a usable income
// increment configuration.
func (a BudgetAccount) HasIncrementRule() bool {
	return a.IncrementDay >= MinDueDay && a.IncrementDay <= MaxDueDay && a.IncrementAmount.Cents > 0
}

// AgeMonths returns the account age in whole 30-day months, the unit badge
// predicates are defined in.
func (a BudgetAccount) AgeMonths(now time.Time) int {
	if a.CreatedAt.IsZero() || now.Before(a.CreatedAt) {
		return 0
	}
	return int(now.Sub(a.CreatedAt) / (30 * 24 * time.Hour))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if len(strings.TrimSpace(r.Name)) == 0 {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.DueDay < MinDueDay || r.DueDay > MaxDueDay {
		return ErrInvalidDueDay
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.CategoryID <= 0 && strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
