package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/the-biKing/hikingTW/internal/pace"
)

// RecordCompletion logs a walked segment and what the learner made of it
func (db *DB) RecordCompletion(ctx context.Context, userID string, c pace.Completion, obs pace.Observation) error {
	db.LockWrite()
	defer db.UnlockWrite()

	accepted := 0
	if obs.Accepted {
		accepted = 1
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO segment_completions (completion_id, user_id, from_id, to_id, elapsed_seconds, factor, accepted, completed_at_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID.String(),
		userID,
		c.FromID,
		c.ToID,
		c.Elapsed.Seconds(),
		obs.Factor,
		accepted,
		c.At.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// CountCompletions returns how many completions are stored for a user
func (db *DB) CountCompletions(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM segment_completions WHERE user_id = ?", userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}

// Cleanup deletes completion records older than the retention duration
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	hours := int(retention.Hours())
	if hours < 1 {
		hours = 1
	}

	db.LockWrite()
	defer db.UnlockWrite()

	result, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM segment_completions WHERE datetime(completed_at_utc) < datetime('now', '-%d hours')", hours),
	)
	if err != nil {
		return fmt.Errorf("failed to cleanup segment_completions: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		log.Printf("Cleanup: deleted %d completions older than %d hours", rows, hours)
	}
	return nil
}
