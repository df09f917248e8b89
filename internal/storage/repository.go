package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budgeteer/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are persisted. Kept explicit so month keys
// and timestamps round-trip without depending on driver time handling.
const timeLayout = time.RFC3339Nano

// SQLiteRepository persists all budgeting entities. The monthly guards
// (income increment, rule posting, streak advance) are single conditional
// UPDATE statements so that concurrent requests for the same user cannot
// apply the same month twice.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single writer keeps SQLite happy under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullStr maps an empty month key to NULL and back.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetOrCreateAccount returns the user's budget account, creating it with
// all-zero values on first access.
func (r *SQLiteRepository) GetOrCreateAccount(ctx context.Context, userID int64, now time.Time) (core.BudgetAccount, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_accounts (user_id, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, core.DefaultDuration, formatTime(now), formatTime(now))
	if err != nil {
		return core.BudgetAccount{}, fmt.Errorf("create account: %w", err)
	}
	return r.getAccount(ctx, userID)
}

func (r *SQLiteRepository) getAccount(ctx context.Context, userID int64) (core.BudgetAccount, error) {
	var (
		acc       core.BudgetAccount
		day       sql.NullInt64
		amount    sql.NullInt64
		lastMonth sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, income_cents, savings_goal_cents, total_savings_cents, duration,
		       increment_day, increment_amount_cents, last_increment_month, created_at
		FROM budget_accounts WHERE user_id = ?`, userID).Scan(
		&acc.UserID, &acc.Income.Cents, &acc.SavingsGoal.Cents, &acc.TotalSavings.Cents,
		&acc.Duration, &day, &amount, &lastMonth, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BudgetAccount{}, core.ErrNotFound
		}
		return core.BudgetAccount{}, fmt.Errorf("get account: %w", err)
	}
	acc.IncrementDay = int(day.Int64)
	acc.IncrementAmount = core.Money{Cents: amount.Int64}
	acc.LastIncrementMonth = lastMonth.String
	acc.CreatedAt = parseTime(createdAt)
	return acc, nil
}

// ApplyIncomeIncrement atomically adds amount to the account income and
// stamps the month, but only when the month has not been stamped yet. The
// returned bool reports whether this call won the month; losers are no-ops.
func (r *SQLiteRepository) ApplyIncomeIncrement(ctx context.Context, userID int64, amount core.Money, month string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budget_accounts
		SET income_cents = income_cents + ?, last_increment_month = ?, updated_at = ?
		WHERE user_id = ? AND (last_increment_month IS NULL OR last_increment_month <> ?)`,
		amount.Cents, month, formatTime(now), userID, month)
	if err != nil {
		return false, fmt.Errorf("apply income increment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply income increment rows: %w", err)
	}
	return n > 0, nil
}

// AddToIncome records a one-time income addition and returns the new income.
func (r *SQLiteRepository) AddToIncome(ctx context.Context, userID int64, amount core.Money, now time.Time) (core.Money, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE budget_accounts SET income_cents = income_cents + ?, updated_at = ? WHERE user_id = ?`,
		amount.Cents, formatTime(now), userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("add to income: %w", err)
	}
	var income core.Money
	err = r.db.QueryRowContext(ctx,
		`SELECT income_cents FROM budget_accounts WHERE user_id = ?`, userID).Scan(&income.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("read income: %w", err)
	}
	return income, nil
}

// UpdateIncrementSettings rewrites the increment rule together with the
// income and month marker the service computed. The marker is preserved or
// cleared by the caller, never invented here.
func (r *SQLiteRepository) UpdateIncrementSettings(ctx context.Context, userID int64, day int, amount, income core.Money, lastMonth string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE budget_accounts
		SET income_cents = ?, increment_day = ?, increment_amount_cents = ?, last_increment_month = ?, updated_at = ?
		WHERE user_id = ?`,
		income.Cents, day, amount.Cents, nullStr(lastMonth), formatTime(now), userID)
	if err != nil {
		return fmt.Errorf("update increment settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetSavingsGoal(ctx context.Context, userID int64, amount core.Money, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE budget_accounts SET savings_goal_cents = ?, updated_at = ? WHERE user_id = ?`,
		amount.Cents, formatTime(now), userID)
	if err != nil {
		return fmt.Errorf("set savings goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetTotalSavings(ctx context.Context, userID int64, amount core.Money, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE budget_accounts SET total_savings_cents = ?, updated_at = ? WHERE user_id = ?`,
		amount.Cents, formatTime(now), userID)
	if err != nil {
		return fmt.Errorf("set total savings: %w", err)
	}
	return nil
}

// ResetAccount zeroes the account and clears the increment rule. The row is
// kept; accounts are never deleted.
func (r *SQLiteRepository) ResetAccount(ctx context.Context, userID int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE budget_accounts
		SET income_cents = 0, savings_goal_cents = 0, total_savings_cents = 0,
		    increment_day = NULL, increment_amount_cents = NULL, last_increment_month = NULL,
		    updated_at = ?
		WHERE user_id = ?`, formatTime(now), userID)
	if err != nil {
		return fmt.Errorf("reset account: %w", err)
	}
	return nil
}

// ResolveCategory looks a category up by name, case-insensitively and with
// surrounding whitespace ignored.
func (r *SQLiteRepository) ResolveCategory(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, icon FROM categories WHERE LOWER(TRIM(name)) = LOWER(TRIM(?))`,
		name).Scan(&c.ID, &c.Name, &c.Icon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, core.ErrNotFound
		}
		return core.Category{}, fmt.Errorf("resolve category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, email, created_at) VALUES (?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, created_at FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// ListUserIDs returns every known user id, for the leaderboard catch-up.
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
