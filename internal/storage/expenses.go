package storage

import (
	"context"
	"fmt"
	"strings"

	"budgeteer/internal/core"
)

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e *core.Expense) error {
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("insert expense: created_at not set")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, category_id, name, amount_cents, percentage, is_fixed, is_auto_posted, month, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Name, e.Amount.Cents, e.Percentage,
		e.IsFixed, e.IsAutoPosted, core.MonthKey(e.CreatedAt), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert expense id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.category_id, c.name, c.icon, e.name, e.amount_cents,
		       e.percentage, e.is_fixed, e.is_auto_posted, e.created_at
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = ?
		ORDER BY e.created_at DESC, e.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e         core.Expense
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Category, &e.Icon,
			&e.Name, &e.Amount.Cents, &e.Percentage, &e.IsFixed, &e.IsAutoPosted, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET category_id = ?, name = ?, amount_cents = ?, percentage = ?
		WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Name, e.Amount.Cents, e.Percentage, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// RecomputePercentages rewrites percentage for every expense of the user
// against the given income, one decimal place, zero when income is zero.
// Idempotent; safe to re-run after a partial failure.
func (r *SQLiteRepository) RecomputePercentages(ctx context.Context, userID int64, income core.Money) error {
	var err error
	if income.Cents > 0 {
		_, err = r.db.ExecContext(ctx, `
			UPDATE expenses SET percentage = ROUND(amount_cents * 100.0 / ?, 1) WHERE user_id = ?`,
			income.Cents, userID)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE expenses SET percentage = 0 WHERE user_id = ?`, userID)
	}
	if err != nil {
		return fmt.Errorf("recompute percentages: %w", err)
	}
	return nil
}

// MonthTotal returns the sum and count of the user's expenses for the month.
func (r *SQLiteRepository) MonthTotal(ctx context.Context, userID int64, month string) (core.Money, int, error) {
	var (
		total core.Money
		count int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM expenses WHERE user_id = ? AND month = ?`, userID, month).Scan(&total.Cents, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("month total: %w", err)
	}
	return total, count, nil
}

// HasSpendInCategories reports whether the user posted any expense this
// month in one of the named categories (compared case-insensitively).
func (r *SQLiteRepository) HasSpendInCategories(ctx context.Context, userID int64, month string, categories []string) (bool, error) {
	if len(categories) == 0 {
		return false, nil
	}
	placeholders := strings.Repeat("?,", len(categories))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(categories)+2)
	args = append(args, userID, month)
	for _, c := range categories {
		args = append(args, strings.ToLower(strings.TrimSpace(c)))
	}

	var n int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = ? AND e.month = ? AND LOWER(TRIM(c.name)) IN (%s)`, placeholders),
		args...).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("discretionary check: %w", err)
	}
	return n > 0, nil
}

// MonthlyTrends returns per-month spend totals for the user's most recent
// months, oldest first.
func (r *SQLiteRepository) MonthlyTrends(ctx context.Context, userID int64, months int) ([]core.TrendPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, SUM(amount_cents)
		FROM expenses WHERE user_id = ?
		GROUP BY month ORDER BY month DESC LIMIT ?`, userID, months)
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	defer rows.Close()

	var out []core.TrendPoint
	for rows.Next() {
		var p core.TrendPoint
		if err := rows.Scan(&p.Month, &p.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
