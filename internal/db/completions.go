package db

import (
	"context"
	"fmt"
	"time"

	"github.com/marcus/tally/internal/calendar"
	"github.com/marcus/tally/internal/models"
)

// AppendCompletion adds a row to the completion history and sets c.ID.
func (db *DB) AppendCompletion(ctx context.Context, c *models.Completion) error {
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now()
	}
	return db.withWriteLock(ctx, func() error {
		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO completions (streak_key, day, recorded_at, current_streak, clock_skew)
			VALUES (?, ?, ?, ?, ?)`,
			c.StreakKey, c.Day.String(), c.RecordedAt.UTC(), c.CurrentStreak, c.ClockSkew)
		if err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}
		c.ID, err = res.LastInsertId()
		return err
	})
}

// ListCompletions returns the newest completions for key, newest first.
// An empty key lists every key; limit <= 0 means no limit.
func (db *DB) ListCompletions(ctx context.Context, key string, limit int) ([]models.Completion, error) {
	query := `SELECT id, streak_key, day, recorded_at, current_streak, clock_skew FROM completions`
	var args []any
	if key != "" {
		query += ` WHERE streak_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY recorded_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []models.Completion
	for rows.Next() {
		var (
			c   models.Completion
			day string
		)
		if err := rows.Scan(&c.ID, &c.StreakKey, &day, &c.RecordedAt, &c.CurrentStreak, &c.ClockSkew); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if c.Day, err = calendar.Parse(day); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCompletionDays returns the number of distinct days with a completion for key.
func (db *DB) CountCompletionDays(ctx context.Context, key string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT day) FROM completions WHERE streak_key = ? AND clock_skew = 0`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completion days: %w", err)
	}
	return n, nil
}
