package core

import (
	"testing"
	"time"
)

func TestMonthKey(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), "2024-06"},
		{time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), "2024-12"},
		{time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC), "2025-01"},
	}
	for _, tc := range cases {
		if got := MonthKey(tc.t); got != tc.want {
			t.Fatalf("MonthKey(%v) = %q, want %q", tc.t, got, tc.want)
		}
	}
}

func TestHasIncrementRule(t *testing.T) {
	cases := []struct {
		name string
		acc  BudgetAccount
		want bool
	}{
		{"configured", BudgetAccount{IncrementDay: 5, IncrementAmount: Money{Cents: 100000}}, true},
		{"no day", BudgetAccount{IncrementAmount: Money{Cents: 100000}}, false},
		{"no amount", BudgetAccount{IncrementDay: 5}, false},
		{"day out of range", BudgetAccount{IncrementDay: 32, IncrementAmount: Money{Cents: 100}}, false},
		{"negative amount", BudgetAccount{IncrementDay: 5, IncrementAmount: Money{Cents: -1}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.acc.HasIncrementRule(); got != tc.want {
				t.Fatalf("HasIncrementRule() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAgeMonths(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		created time.Time
		want    int
	}{
		{"brand new", now, 0},
		{"29 days", now.AddDate(0, 0, -29), 0},
		{"30 days", now.AddDate(0, 0, -30), 1},
		{"95 days", now.AddDate(0, 0, -95), 3},
		{"zero time", time.Time{}, 0},
		{"created in the future", now.AddDate(0, 0, 1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := BudgetAccount{CreatedAt: tc.created}
			if got := acc.AgeMonths(now); got != tc.want {
				t.Fatalf("AgeMonths() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	good := RecurringRule{Name: "Rent", Amount: Money{Cents: 50000}, Category: "Bills", DueDay: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []RecurringRule{
		{Name: "", Amount: Money{Cents: 1}, Category: "Bills", DueDay: 1},
		{Name: "Rent", Amount: Money{Cents: 0}, Category: "Bills", DueDay: 1},
		{Name: "Rent", Amount: Money{Cents: 1}, Category: "", DueDay: 1},
		{Name: "Rent", Amount: Money{Cents: 1}, Category: "Bills", DueDay: 0},
		{Name: "Rent", Amount: Money{Cents: 1}, Category: "Bills", DueDay: 32},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Name: "Groceries", Amount: Money{Cents: 1500}, CategoryID: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Name: "", Amount: Money{Cents: 1}, CategoryID: 1},
		{Name: "a", Amount: Money{Cents: 0}, CategoryID: 1},
		{Name: "a", Amount: Money{Cents: 1}}, // no category at all
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
