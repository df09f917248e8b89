package core

// BudgetSnapshot is the serializable state returned to read handlers after
// automation has caught up.
type BudgetSnapshot struct {
	Income          Money
	Expenses        []Expense
	SavingsGoal     Money
	TotalSavings    Money
	Duration        string
	IncrementDay    int
	IncrementAmount Money
}

// TrendPoint is one month of total spend for the trends endpoint.
type TrendPoint struct {
	Month string // month key
	Total Money
}

// LeaderboardEntry ranks a user by total points.
type LeaderboardEntry struct {
	UserID            int64
	FirstName         string
	LastName          string
	TotalPoints       int64
	MonthsUnderBudget int
}
