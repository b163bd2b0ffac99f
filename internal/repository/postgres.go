package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/pace"
)

// Querier is the subset of pgx used by the repository.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	profile_id UUID NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	speed_factor DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	recent_speed_factors DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
	stats_count INTEGER NOT NULL DEFAULT 0,
	stats_mean DOUBLE PRECISION NOT NULL DEFAULT 0,
	stats_m2 DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS itineraries (
	user_id TEXT PRIMARY KEY,
	days JSONB NOT NULL DEFAULT '[]',
	day_index INTEGER NOT NULL DEFAULT 0,
	progress_index INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS segment_completions (
	completion_id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	from_id TEXT NOT NULL,
	to_id TEXT NOT NULL,
	elapsed_seconds DOUBLE PRECISION NOT NULL,
	factor DOUBLE PRECISION NOT NULL,
	accepted BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at TIMESTAMPTZ NOT NULL
);
`

// Repository persists profiles and itineraries in Postgres
type Repository struct {
	db   Querier
	pool *pgxpool.Pool
}

// NewRepository connects to databaseURL
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: pool, pool: pool}, nil
}

// NewWithQuerier wraps an existing connection, e.g. a mock in tests
func NewWithQuerier(q Querier) *Repository {
	return &Repository{db: q}
}

// Close releases the pool if the repository owns one
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping checks database connectivity; a wrapped querier is assumed alive
func (r *Repository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadProfile returns the stored profile, or nil if the user has none
func (r *Repository) LoadProfile(ctx context.Context, userID string) (*pace.Profile, error) {
	query := `
		SELECT profile_id::text, username, speed_factor, recent_speed_factors, stats_count, stats_mean, stats_m2
		FROM user_profiles
		WHERE user_id = $1
	`

	var (
		p     pace.Profile
		idStr string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&idStr,
		&p.Username,
		&p.SpeedFactor,
		&p.RecentSpeedFactors,
		&p.Stats.Count,
		&p.Stats.Mean,
		&p.Stats.M2,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if p.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid profile id %q: %w", idStr, err)
	}
	return &p, nil
}

// SaveProfile upserts a profile
func (r *Repository) SaveProfile(ctx context.Context, userID string, p *pace.Profile) error {
	query := `
		INSERT INTO user_profiles (user_id, profile_id, username, speed_factor, recent_speed_factors, stats_count, stats_mean, stats_m2, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			profile_id = EXCLUDED.profile_id,
			username = EXCLUDED.username,
			speed_factor = EXCLUDED.speed_factor,
			recent_speed_factors = EXCLUDED.recent_speed_factors,
			stats_count = EXCLUDED.stats_count,
			stats_mean = EXCLUDED.stats_mean,
			stats_m2 = EXCLUDED.stats_m2,
			updated_at = EXCLUDED.updated_at
	`

	recent := p.RecentSpeedFactors
	if recent == nil {
		recent = []float64{}
	}

	_, err := r.db.Exec(ctx, query,
		userID,
		p.ID.String(),
		p.Username,
		p.SpeedFactor,
		recent,
		p.Stats.Count,
		p.Stats.Mean,
		p.Stats.M2,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// LoadItinerary returns the stored itinerary, or nil if the user has none
func (r *Repository) LoadItinerary(ctx context.Context, userID string) (*itinerary.Itinerary, error) {
	query := `
		SELECT days::text, day_index, progress_index
		FROM itineraries
		WHERE user_id = $1
	`

	var (
		it   itinerary.Itinerary
		days string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(&days, &it.DayIndex, &it.ProgressIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}

	if err := json.Unmarshal([]byte(days), &it.Days); err != nil {
		return nil, fmt.Errorf("failed to decode itinerary days: %w", err)
	}
	return &it, nil
}

// SaveItinerary upserts an itinerary
func (r *Repository) SaveItinerary(ctx context.Context, userID string, it *itinerary.Itinerary) error {
	days, err := json.Marshal(it.Days)
	if err != nil {
		return fmt.Errorf("failed to encode itinerary days: %w", err)
	}

	query := `
		INSERT INTO itineraries (user_id, days, day_index, progress_index, updated_at)
		VALUES ($1, $2::jsonb, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			days = EXCLUDED.days,
			day_index = EXCLUDED.day_index,
			progress_index = EXCLUDED.progress_index,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Exec(ctx, query, userID, string(days), it.DayIndex, it.ProgressIndex, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

// RecordCompletion logs a walked segment and what the learner made of it
func (r *Repository) RecordCompletion(ctx context.Context, userID string, c pace.Completion, obs pace.Observation) error {
	query := `
		INSERT INTO segment_completions (completion_id, user_id, from_id, to_id, elapsed_seconds, factor, accepted, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (completion_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		c.ID.String(),
		userID,
		c.FromID,
		c.ToID,
		c.Elapsed.Seconds(),
		obs.Factor,
		obs.Accepted,
		c.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// Cleanup deletes completion records older than the retention duration
func (r *Repository) Cleanup(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)

	tag, err := r.db.Exec(ctx, `DELETE FROM segment_completions WHERE completed_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup segment_completions: %w", err)
	}

	if rows := tag.RowsAffected(); rows > 0 {
		log.Printf("Cleanup: deleted %d completions older than %v", rows, retention)
	}
	return nil
}
