package services

import (
	"context"
	"testing"
	"time"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
)

func TestBadgeCatalogPredicates(t *testing.T) {
	tests := []struct {
		badge string
		state BadgeState
		want  bool
	}{
		{"First Month", BadgeState{AccountAgeMonths: 1}, true},
		{"First Month", BadgeState{AccountAgeMonths: 0}, false},

		{"Smart Saver", BadgeState{AccountAgeMonths: 1, SavingsGoal: core.Money{Cents: 1000}, TotalSavings: core.Money{Cents: 1000}}, true},
		{"Smart Saver", BadgeState{AccountAgeMonths: 1, SavingsGoal: core.Money{Cents: 1000}, TotalSavings: core.Money{Cents: 999}}, false},
		{"Smart Saver", BadgeState{AccountAgeMonths: 1, TotalSavings: core.Money{Cents: 1000}}, false}, // goal unset
		{"Smart Saver", BadgeState{AccountAgeMonths: 0, SavingsGoal: core.Money{Cents: 1000}, TotalSavings: core.Money{Cents: 1000}}, false},

		{"Budget Pro", BadgeState{MonthsUnderBudget: 3}, true},
		{"Budget Pro", BadgeState{MonthsUnderBudget: 2}, false},

		{"Zero Waste", BadgeState{MonthExpenseCount: 2, MonthsNoDiscretionary: 1}, true},
		{"Zero Waste", BadgeState{MonthExpenseCount: 2, MonthsNoDiscretionary: 1, MonthHasDiscretionary: true}, false},
		{"Zero Waste", BadgeState{MonthExpenseCount: 0, MonthsNoDiscretionary: 1}, false},
		{"Zero Waste", BadgeState{MonthExpenseCount: 2, MonthsNoDiscretionary: 0}, false},

		{"Financial Guru", BadgeState{MonthsUnderBudget: 6}, true},
		{"Financial Guru", BadgeState{MonthsUnderBudget: 5}, false},

		{"Savings Master", BadgeState{TotalSavings: core.Money{Cents: 10_000_000}}, true},
		{"Savings Master", BadgeState{TotalSavings: core.Money{Cents: 9_999_999}}, false},
	}

	specs := make(map[string]BadgeSpec, len(Catalog))
	for _, spec := range Catalog {
		specs[spec.Name] = spec
	}

	for _, tt := range tests {
		t.Run(tt.badge, func(t *testing.T) {
			spec, ok := specs[tt.badge]
			if !ok {
				t.Fatalf("badge %q not in catalog", tt.badge)
			}
			if got := spec.Predicate(tt.state); got != tt.want {
				t.Errorf("%s predicate(%+v) = %v, want %v", tt.badge, tt.state, got, tt.want)
			}
		})
	}
}

func TestCatalogPoints(t *testing.T) {
	want := map[string]int64{
		"First Month":    50,
		"Smart Saver":    100,
		"Budget Pro":     300,
		"Zero Waste":     500,
		"Financial Guru": 600,
		"Savings Master": 1000,
	}
	if len(Catalog) != len(want) {
		t.Fatalf("catalog has %d badges, want %d", len(Catalog), len(want))
	}
	for _, spec := range Catalog {
		if spec.Points != want[spec.Name] {
			t.Errorf("%s points = %d, want %d", spec.Name, spec.Points, want[spec.Name])
		}
	}
}

func TestBadgeAwarder_AwardsOnceAndAddsPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Create the account 40 days back so it is at least one month old.
	created := day(2025, time.February, 1)
	now := day(2025, time.March, 13)
	if _, err := f.repo.GetOrCreateAccount(ctx, f.userID, created); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}

	awarded, err := f.badges.Evaluate(ctx, f.userID, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(awarded) != 1 || awarded[0] != "First Month" {
		t.Fatalf("awarded = %v, want [First Month]", awarded)
	}

	s, _ := f.repo.GetOrCreateStreak(ctx, f.userID)
	if s.TotalPoints != 50 {
		t.Errorf("TotalPoints = %d, want 50", s.TotalPoints)
	}

	// Re-evaluation awards nothing and points do not change.
	awarded, err = f.badges.Evaluate(ctx, f.userID, now)
	if err != nil {
		t.Fatalf("Evaluate rerun: %v", err)
	}
	if len(awarded) != 0 {
		t.Fatalf("awarded on rerun = %v, want none", awarded)
	}
	s, _ = f.repo.GetOrCreateStreak(ctx, f.userID)
	if s.TotalPoints != 50 {
		t.Errorf("TotalPoints after rerun = %d, want 50", s.TotalPoints)
	}
}

func TestBadgeAwarder_SavingsBadges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := day(2025, time.January, 1)
	now := day(2025, time.March, 13)

	if _, err := f.repo.GetOrCreateAccount(ctx, f.userID, created); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if err := f.service.SetSavingsGoal(ctx, f.userID, core.Money{Cents: 500000}, now); err != nil {
		t.Fatalf("SetSavingsGoal: %v", err)
	}
	if err := f.service.SetTotalSavings(ctx, f.userID, core.Money{Cents: 10_000_000}, now); err != nil {
		t.Fatalf("SetTotalSavings: %v", err)
	}

	awarded, err := f.badges.Evaluate(ctx, f.userID, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	got := make(map[string]bool, len(awarded))
	for _, name := range awarded {
		got[name] = true
	}
	for _, want := range []string{"First Month", "Smart Saver", "Savings Master"} {
		if !got[want] {
			t.Errorf("badge %q not awarded; got %v", want, awarded)
		}
	}

	s, _ := f.repo.GetOrCreateStreak(ctx, f.userID)
	if s.TotalPoints != 50+100+1000 {
		t.Errorf("TotalPoints = %d, want 1150", s.TotalPoints)
	}

	// Even if savings later drop, earned badges stay.
	if err := f.service.SetTotalSavings(ctx, f.userID, core.Money{Cents: 0}, now); err != nil {
		t.Fatalf("SetTotalSavings: %v", err)
	}
	if _, err := f.badges.Evaluate(ctx, f.userID, now); err != nil {
		t.Fatalf("Evaluate rerun: %v", err)
	}
	badges, _ := f.repo.ListBadges(ctx, f.userID)
	if len(badges) != 3 {
		t.Errorf("badges after savings drop = %d, want 3", len(badges))
	}
	s, _ = f.repo.GetOrCreateStreak(ctx, f.userID)
	if s.TotalPoints != 1150 {
		t.Errorf("TotalPoints decreased: %d", s.TotalPoints)
	}
}

func TestBadgeAwarder_PublishesBadgeEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := day(2025, time.February, 1)
	now := day(2025, time.March, 13)

	if _, err := f.repo.GetOrCreateAccount(ctx, f.userID, created); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if _, err := f.badges.Evaluate(ctx, f.userID, now); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(f.events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.events.events))
	}
	e := f.events.events[0]
	if e.Kind != amqp.KindBadgeAwarded || e.Name != "First Month" || e.Points != 50 {
		t.Errorf("event = %+v", e)
	}
}

func TestLeaderboardRefreshesAllUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := day(2025, time.March, 13)

	// Second user with an account old enough to earn First Month.
	u := core.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}
	if err := f.repo.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := f.repo.GetOrCreateAccount(ctx, u.ID, day(2025, time.January, 1)); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}

	entries, err := f.service.Leaderboard(ctx, 10, now)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Grace earned First Month during the leaderboard's catch-up pass.
	if entries[0].FirstName != "Grace" || entries[0].TotalPoints != 50 {
		t.Errorf("top entry = %+v, want Grace with 50 points", entries[0])
	}
}
