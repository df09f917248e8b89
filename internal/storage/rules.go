package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budgeteer/internal/core"
)

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule *core.RecurringRule) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (user_id, name, amount_cents, category, icon, due_day)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rule.UserID, rule.Name, rule.Amount.Cents, rule.Category, rule.Icon, rule.DueDay)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	rule.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create rule id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRule(ctx context.Context, userID, id int64) (core.RecurringRule, error) {
	var (
		rule      core.RecurringRule
		lastMonth sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, amount_cents, category, icon, due_day, last_posted_month
		FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID).Scan(
		&rule.ID, &rule.UserID, &rule.Name, &rule.Amount.Cents,
		&rule.Category, &rule.Icon, &rule.DueDay, &lastMonth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RecurringRule{}, core.ErrNotFound
		}
		return core.RecurringRule{}, fmt.Errorf("get rule: %w", err)
	}
	rule.LastPostedMonth = lastMonth.String
	return rule, nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context, userID int64) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount_cents, category, icon, due_day, last_posted_month
		FROM recurring_rules WHERE user_id = ? ORDER BY due_day, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListDueRules returns rules due on or before day that have not been posted
// for month yet. This is the catch-up query: a rule missed earlier in the
// month is still returned.
func (r *SQLiteRepository) ListDueRules(ctx context.Context, userID int64, day int, month string) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount_cents, category, icon, due_day, last_posted_month
		FROM recurring_rules
		WHERE user_id = ? AND due_day <= ? AND (last_posted_month IS NULL OR last_posted_month <> ?)
		ORDER BY due_day, id`, userID, day, month)
	if err != nil {
		return nil, fmt.Errorf("list due rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]core.RecurringRule, error) {
	var out []core.RecurringRule
	for rows.Next() {
		var (
			rule      core.RecurringRule
			lastMonth sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Amount.Cents,
			&rule.Category, &rule.Icon, &rule.DueDay, &lastMonth); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.LastPostedMonth = lastMonth.String
		out = append(out, rule)
	}
	return out, rows.Err()
}

// UpdateRule rewrites a rule and clears its posted marker so the next
// evaluation reconsiders it immediately.
func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.RecurringRule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_rules
		SET name = ?, amount_cents = ?, category = ?, icon = ?, due_day = ?, last_posted_month = NULL
		WHERE id = ? AND user_id = ?`,
		rule.Name, rule.Amount.Cents, rule.Category, rule.Icon, rule.DueDay, rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ClaimRulePosting atomically stamps the rule with month. Only one request
// per month gets true back; everyone else sees the stamp already set.
func (r *SQLiteRepository) ClaimRulePosting(ctx context.Context, ruleID int64, month string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_rules SET last_posted_month = ?
		WHERE id = ? AND (last_posted_month IS NULL OR last_posted_month <> ?)`,
		month, ruleID, month)
	if err != nil {
		return false, fmt.Errorf("claim rule posting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rule posting rows: %w", err)
	}
	return n > 0, nil
}
