package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budgeteer/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository) int64 {
	t.Helper()
	u := core.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := repo.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u.ID
}

func TestGetOrCreateAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	acc, err := repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if acc.UserID != userID {
		t.Errorf("UserID = %d, want %d", acc.UserID, userID)
	}
	if acc.Income.Cents != 0 || acc.SavingsGoal.Cents != 0 || acc.TotalSavings.Cents != 0 {
		t.Errorf("new account not zeroed: %+v", acc)
	}
	if acc.Duration != core.DefaultDuration {
		t.Errorf("Duration = %q, want %q", acc.Duration, core.DefaultDuration)
	}
	if !acc.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", acc.CreatedAt, now)
	}

	// Second call must not reset anything.
	if err := repo.SetSavingsGoal(ctx, userID, core.Money{Cents: 50000}, now); err != nil {
		t.Fatalf("SetSavingsGoal: %v", err)
	}
	acc2, err := repo.GetOrCreateAccount(ctx, userID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetOrCreateAccount second call: %v", err)
	}
	if acc2.SavingsGoal.Cents != 50000 {
		t.Errorf("second call lost savings goal: %+v", acc2)
	}
	if !acc2.CreatedAt.Equal(now) {
		t.Errorf("second call rewrote created_at: %v", acc2.CreatedAt)
	}
}

func TestApplyIncomeIncrement_OncePerMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if _, err := repo.GetOrCreateAccount(ctx, userID, now); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}

	applied, err := repo.ApplyIncomeIncrement(ctx, userID, core.Money{Cents: 10000}, "2025-03", now)
	if err != nil {
		t.Fatalf("ApplyIncomeIncrement: %v", err)
	}
	if !applied {
		t.Fatal("first increment not applied")
	}

	// Same month is a no-op.
	applied, err = repo.ApplyIncomeIncrement(ctx, userID, core.Money{Cents: 10000}, "2025-03", now)
	if err != nil {
		t.Fatalf("ApplyIncomeIncrement repeat: %v", err)
	}
	if applied {
		t.Fatal("second increment for same month applied")
	}

	acc, err := repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if acc.Income.Cents != 10000 {
		t.Errorf("Income = %d, want 10000", acc.Income.Cents)
	}
	if acc.LastIncrementMonth != "2025-03" {
		t.Errorf("LastIncrementMonth = %q, want 2025-03", acc.LastIncrementMonth)
	}

	// Next month applies again.
	applied, err = repo.ApplyIncomeIncrement(ctx, userID, core.Money{Cents: 10000}, "2025-04", now)
	if err != nil {
		t.Fatalf("ApplyIncomeIncrement next month: %v", err)
	}
	if !applied {
		t.Fatal("next month increment not applied")
	}
	acc, _ = repo.GetOrCreateAccount(ctx, userID, now)
	if acc.Income.Cents != 20000 {
		t.Errorf("Income after two months = %d, want 20000", acc.Income.Cents)
	}
}

func TestResetAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)
	now := time.Now()
	if _, err := repo.GetOrCreateAccount(ctx, userID, now); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if err := repo.UpdateIncrementSettings(ctx, userID, 5, core.Money{Cents: 1000}, core.Money{Cents: 250000}, "2025-03", now); err != nil {
		t.Fatalf("UpdateIncrementSettings: %v", err)
	}
	if err := repo.SetTotalSavings(ctx, userID, core.Money{Cents: 5000}, now); err != nil {
		t.Fatalf("SetTotalSavings: %v", err)
	}

	if err := repo.ResetAccount(ctx, userID, now); err != nil {
		t.Fatalf("ResetAccount: %v", err)
	}
	acc, err := repo.GetOrCreateAccount(ctx, userID, now)
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if acc.Income.Cents != 0 || acc.TotalSavings.Cents != 0 || acc.SavingsGoal.Cents != 0 {
		t.Errorf("reset left values: %+v", acc)
	}
	if acc.HasIncrementRule() {
		t.Errorf("reset kept increment rule: %+v", acc)
	}
	if acc.LastIncrementMonth != "" {
		t.Errorf("reset kept month marker: %q", acc.LastIncrementMonth)
	}
}

func TestResolveCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  string
		err   bool
	}{
		{"exact", "Food", "Food", false},
		{"lowercase", "food", "Food", false},
		{"uppercase", "FOOD", "Food", false},
		{"padded", "  Transport  ", "Transport", false},
		{"unknown", "Groceries", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := repo.ResolveCategory(ctx, tt.input)
			if tt.err {
				if err == nil {
					t.Fatalf("ResolveCategory(%q) expected error, got %+v", tt.input, c)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCategory(%q): %v", tt.input, err)
			}
			if c.Name != tt.want {
				t.Errorf("ResolveCategory(%q).Name = %q, want %q", tt.input, c.Name, tt.want)
			}
		})
	}
}

func TestRuleLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)

	rule := core.RecurringRule{
		UserID:   userID,
		Name:     "Rent",
		Amount:   core.Money{Cents: 80000},
		Category: "Bills",
		Icon:     "🧾",
		DueDay:   5,
	}
	if err := repo.CreateRule(ctx, &rule); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if rule.ID == 0 {
		t.Fatal("CreateRule did not set ID")
	}

	// Not due before the due day.
	due, err := repo.ListDueRules(ctx, userID, 4, "2025-03")
	if err != nil {
		t.Fatalf("ListDueRules: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("rule due before its day: %+v", due)
	}

	// Due on the day.
	due, err = repo.ListDueRules(ctx, userID, 5, "2025-03")
	if err != nil {
		t.Fatalf("ListDueRules: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due rule, got %d", len(due))
	}

	// Only one claim wins for the month.
	won, err := repo.ClaimRulePosting(ctx, rule.ID, "2025-03")
	if err != nil {
		t.Fatalf("ClaimRulePosting: %v", err)
	}
	if !won {
		t.Fatal("first claim lost")
	}
	won, err = repo.ClaimRulePosting(ctx, rule.ID, "2025-03")
	if err != nil {
		t.Fatalf("ClaimRulePosting repeat: %v", err)
	}
	if won {
		t.Fatal("second claim for same month won")
	}

	// Claimed rule is no longer due this month, but is due next month.
	due, _ = repo.ListDueRules(ctx, userID, 28, "2025-03")
	if len(due) != 0 {
		t.Fatalf("claimed rule still due: %+v", due)
	}
	due, _ = repo.ListDueRules(ctx, userID, 28, "2025-04")
	if len(due) != 1 {
		t.Fatalf("rule not due next month: got %d", len(due))
	}

	// Update clears the posted marker.
	rule.Amount = core.Money{Cents: 85000}
	if err := repo.UpdateRule(ctx, rule); err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	got, err := repo.GetRule(ctx, userID, rule.ID)
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.LastPostedMonth != "" {
		t.Errorf("update kept posted marker: %q", got.LastPostedMonth)
	}
	if got.Amount.Cents != 85000 {
		t.Errorf("Amount = %d, want 85000", got.Amount.Cents)
	}

	if err := repo.DeleteRule(ctx, userID, rule.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if _, err := repo.GetRule(ctx, userID, rule.ID); err != core.ErrNotFound {
		t.Fatalf("GetRule after delete = %v, want ErrNotFound", err)
	}
}

func TestExpensesAndPercentages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	food, err := repo.ResolveCategory(ctx, "Food")
	if err != nil {
		t.Fatalf("ResolveCategory: %v", err)
	}

	e := core.Expense{
		UserID:     userID,
		CategoryID: food.ID,
		Name:       "Groceries",
		Amount:     core.Money{Cents: 5000},
		Percentage: 2.5,
		CreatedAt:  now,
	}
	if err := repo.InsertExpense(ctx, &e); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	list, err := repo.ListExpenses(ctx, userID)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(list))
	}
	if list[0].Category != "Food" || list[0].Icon == "" {
		t.Errorf("category not joined: %+v", list[0])
	}

	// Recompute against a new income: 5000 / 250000 = 2%.
	if err := repo.RecomputePercentages(ctx, userID, core.Money{Cents: 250000}); err != nil {
		t.Fatalf("RecomputePercentages: %v", err)
	}
	list, _ = repo.ListExpenses(ctx, userID)
	if list[0].Percentage != 2.0 {
		t.Errorf("Percentage = %v, want 2.0", list[0].Percentage)
	}

	// Zero income zeroes every percentage.
	if err := repo.RecomputePercentages(ctx, userID, core.Money{}); err != nil {
		t.Fatalf("RecomputePercentages zero: %v", err)
	}
	list, _ = repo.ListExpenses(ctx, userID)
	if list[0].Percentage != 0 {
		t.Errorf("Percentage with zero income = %v, want 0", list[0].Percentage)
	}

	total, count, err := repo.MonthTotal(ctx, userID, "2025-03")
	if err != nil {
		t.Fatalf("MonthTotal: %v", err)
	}
	if total.Cents != 5000 || count != 1 {
		t.Errorf("MonthTotal = %d/%d, want 5000/1", total.Cents, count)
	}
	total, count, _ = repo.MonthTotal(ctx, userID, "2025-04")
	if total.Cents != 0 || count != 0 {
		t.Errorf("empty month total = %d/%d, want 0/0", total.Cents, count)
	}
}

func TestHasSpendInCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	shopping, err := repo.ResolveCategory(ctx, "Shopping")
	if err != nil {
		t.Fatalf("ResolveCategory: %v", err)
	}
	e := core.Expense{UserID: userID, CategoryID: shopping.ID, Name: "Shoes", Amount: core.Money{Cents: 9900}, CreatedAt: now}
	if err := repo.InsertExpense(ctx, &e); err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}

	got, err := repo.HasSpendInCategories(ctx, userID, "2025-03", []string{"shopping", "entertainment"})
	if err != nil {
		t.Fatalf("HasSpendInCategories: %v", err)
	}
	if !got {
		t.Error("expected discretionary spend to be found")
	}

	got, _ = repo.HasSpendInCategories(ctx, userID, "2025-03", []string{"Entertainment"})
	if got {
		t.Error("found spend in category without expenses")
	}
	got, _ = repo.HasSpendInCategories(ctx, userID, "2025-04", []string{"Shopping"})
	if got {
		t.Error("found spend in wrong month")
	}
	got, _ = repo.HasSpendInCategories(ctx, userID, "2025-03", nil)
	if got {
		t.Error("empty category list matched")
	}
}

func TestMonthlyTrends(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)

	food, _ := repo.ResolveCategory(ctx, "Food")
	for i, month := range []time.Month{time.January, time.February, time.March} {
		e := core.Expense{
			UserID:     userID,
			CategoryID: food.ID,
			Name:       "Groceries",
			Amount:     core.Money{Cents: int64((i + 1) * 1000)},
			CreatedAt:  time.Date(2025, month, 10, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.InsertExpense(ctx, &e); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}

	trends, err := repo.MonthlyTrends(ctx, userID, 2)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("expected 2 points, got %d", len(trends))
	}
	// Oldest first within the window.
	if trends[0].Month != "2025-02" || trends[0].Total.Cents != 2000 {
		t.Errorf("first point = %+v", trends[0])
	}
	if trends[1].Month != "2025-03" || trends[1].Total.Cents != 3000 {
		t.Errorf("second point = %+v", trends[1])
	}
}

func TestAdvanceStreakMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)

	if _, err := repo.GetOrCreateStreak(ctx, userID); err != nil {
		t.Fatalf("GetOrCreateStreak: %v", err)
	}

	advanced, err := repo.AdvanceStreakMonth(ctx, userID, true, true, "2025-03")
	if err != nil {
		t.Fatalf("AdvanceStreakMonth: %v", err)
	}
	if !advanced {
		t.Fatal("first advance did not apply")
	}
	advanced, _ = repo.AdvanceStreakMonth(ctx, userID, true, true, "2025-03")
	if advanced {
		t.Fatal("same month advanced twice")
	}

	s, err := repo.GetOrCreateStreak(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreateStreak: %v", err)
	}
	if s.MonthsUnderBudget != 1 || s.MonthsNoDiscretionary != 1 {
		t.Errorf("streak = %+v, want both counters 1", s)
	}
	if s.LastEvalMonth != "2025-03" {
		t.Errorf("LastEvalMonth = %q, want 2025-03", s.LastEvalMonth)
	}

	// A failed month resets its counter.
	advanced, err = repo.AdvanceStreakMonth(ctx, userID, false, true, "2025-04")
	if err != nil || !advanced {
		t.Fatalf("AdvanceStreakMonth next month: advanced=%v err=%v", advanced, err)
	}
	s, _ = repo.GetOrCreateStreak(ctx, userID)
	if s.MonthsUnderBudget != 0 {
		t.Errorf("MonthsUnderBudget = %d, want 0 after over-budget month", s.MonthsUnderBudget)
	}
	if s.MonthsNoDiscretionary != 2 {
		t.Errorf("MonthsNoDiscretionary = %d, want 2", s.MonthsNoDiscretionary)
	}
}

func TestAwardBadgeOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)
	now := time.Now()

	awarded, err := repo.AwardBadge(ctx, userID, "Smart Saver", now)
	if err != nil {
		t.Fatalf("AwardBadge: %v", err)
	}
	if !awarded {
		t.Fatal("first award did not apply")
	}
	awarded, err = repo.AwardBadge(ctx, userID, "Smart Saver", now)
	if err != nil {
		t.Fatalf("AwardBadge repeat: %v", err)
	}
	if awarded {
		t.Fatal("badge awarded twice")
	}

	badges, err := repo.ListBadges(ctx, userID)
	if err != nil {
		t.Fatalf("ListBadges: %v", err)
	}
	if len(badges) != 1 || badges[0].Name != "Smart Saver" {
		t.Fatalf("badges = %+v", badges)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	users := []struct {
		first  string
		points int64
	}{
		{"Low", 100},
		{"High", 900},
		{"Mid", 500},
	}
	for i, u := range users {
		user := core.User{FirstName: u.first, LastName: "User", Email: u.first + "@example.com"}
		if err := repo.CreateUser(ctx, &user); err != nil {
			t.Fatalf("CreateUser %d: %v", i, err)
		}
		if _, err := repo.GetOrCreateStreak(ctx, user.ID); err != nil {
			t.Fatalf("GetOrCreateStreak: %v", err)
		}
		if err := repo.AddPoints(ctx, user.ID, u.points); err != nil {
			t.Fatalf("AddPoints: %v", err)
		}
	}

	entries, err := repo.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].FirstName != "High" || entries[1].FirstName != "Mid" {
		t.Errorf("ordering wrong: %+v", entries)
	}
	if entries[0].TotalPoints != 900 {
		t.Errorf("TotalPoints = %d, want 900", entries[0].TotalPoints)
	}
}

func TestNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := newTestUser(t, repo)

	n := core.Notification{UserID: userID, Kind: "badge_awarded", Message: "You earned Smart Saver"}
	if err := repo.InsertNotification(ctx, &n); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}
	if n.ID == 0 {
		t.Fatal("InsertNotification did not set ID")
	}

	list, err := repo.ListNotifications(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 1 || list[0].Message != "You earned Smart Saver" {
		t.Fatalf("notifications = %+v", list)
	}
}
