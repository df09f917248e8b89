package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budgeteer/internal/core"
)

// GetOrCreateStreak returns the user's streak counters, creating the
// all-zero row on first access.
func (r *SQLiteRepository) GetOrCreateStreak(ctx context.Context, userID int64) (core.Streak, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_streaks (user_id) VALUES (?) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return core.Streak{}, fmt.Errorf("create streak: %w", err)
	}

	var (
		s         core.Streak
		lastMonth sql.NullString
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT user_id, total_points, months_under_budget, months_no_discretionary, last_eval_month
		FROM user_streaks WHERE user_id = ?`, userID).Scan(
		&s.UserID, &s.TotalPoints, &s.MonthsUnderBudget, &s.MonthsNoDiscretionary, &lastMonth)
	if err != nil {
		return core.Streak{}, fmt.Errorf("get streak: %w", err)
	}
	s.LastEvalMonth = lastMonth.String
	return s, nil
}

// AdvanceStreakMonth applies the monthly streak transition at most once per
// month: counters increment when their condition held, reset otherwise, and
// the evaluation month is stamped — all in one conditional UPDATE so that
// concurrent requests cannot advance the same month twice. Returns whether
// this call performed the transition.
func (r *SQLiteRepository) AdvanceStreakMonth(ctx context.Context, userID int64, underBudget, noDiscretionary bool, month string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_streaks
		SET months_under_budget = CASE WHEN ? THEN months_under_budget + 1 ELSE 0 END,
		    months_no_discretionary = CASE WHEN ? THEN months_no_discretionary + 1 ELSE 0 END,
		    last_eval_month = ?
		WHERE user_id = ? AND (last_eval_month IS NULL OR last_eval_month <> ?)`,
		underBudget, noDiscretionary, month, userID, month)
	if err != nil {
		return false, fmt.Errorf("advance streak month: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance streak month rows: %w", err)
	}
	return n > 0, nil
}

// AddPoints adds points to the user's total. Points are only ever added.
func (r *SQLiteRepository) AddPoints(ctx context.Context, userID int64, points int64) error {
	if points < 0 {
		return fmt.Errorf("add points: negative points %d", points)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_streaks SET total_points = total_points + ? WHERE user_id = ?`, points, userID)
	if err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	return nil
}

// AwardBadge inserts the badge row unless the user already holds it.
// Returns whether the badge was newly awarded.
func (r *SQLiteRepository) AwardBadge(ctx context.Context, userID int64, name string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_badges (user_id, badge_name, awarded_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, badge_name) DO NOTHING`,
		userID, name, formatTime(now))
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("award badge rows: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListBadges(ctx context.Context, userID int64) ([]core.Badge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, badge_name, awarded_at
		FROM user_badges WHERE user_id = ? ORDER BY awarded_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var out []core.Badge
	for rows.Next() {
		var (
			b         core.Badge
			awardedAt string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &awardedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.AwardedAt = parseTime(awardedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Leaderboard returns the top users by total points.
func (r *SQLiteRepository) Leaderboard(ctx context.Context, limit int) ([]core.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, s.total_points, s.months_under_budget
		FROM users u
		JOIN user_streaks s ON s.user_id = u.id
		ORDER BY s.total_points DESC, u.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []core.LeaderboardEntry
	for rows.Next() {
		var e core.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.FirstName, &e.LastName, &e.TotalPoints, &e.MonthsUnderBudget); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertNotification(ctx context.Context, n *core.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, kind, message, created_at) VALUES (?, ?, ?, ?)`,
		n.UserID, n.Kind, n.Message, formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert notification id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, limit int) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, message, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}
