package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/pace"
)

// LoadProfile returns the stored profile, or nil if the user has none
func (db *DB) LoadProfile(ctx context.Context, userID string) (*pace.Profile, error) {
	query := `
		SELECT profile_id, username, speed_factor, recent_speed_factors, stats_count, stats_mean, stats_m2
		FROM user_profiles
		WHERE user_id = ?
	`

	var (
		p        pace.Profile
		idStr    string
		recent   string
		statsCnt int
	)
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&idStr,
		&p.Username,
		&p.SpeedFactor,
		&recent,
		&statsCnt,
		&p.Stats.Mean,
		&p.Stats.M2,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	p.Stats.Count = statsCnt
	if p.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid profile id %q: %w", idStr, err)
	}
	if err := json.Unmarshal([]byte(recent), &p.RecentSpeedFactors); err != nil {
		return nil, fmt.Errorf("failed to decode recent speed factors: %w", err)
	}
	return &p, nil
}

// SaveProfile upserts a profile
func (db *DB) SaveProfile(ctx context.Context, userID string, p *pace.Profile) error {
	recent, err := json.Marshal(p.RecentSpeedFactors)
	if err != nil {
		return fmt.Errorf("failed to encode recent speed factors: %w", err)
	}

	db.LockWrite()
	defer db.UnlockWrite()

	query := `
		INSERT INTO user_profiles (user_id, profile_id, username, speed_factor, recent_speed_factors, stats_count, stats_mean, stats_m2, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			profile_id = excluded.profile_id,
			username = excluded.username,
			speed_factor = excluded.speed_factor,
			recent_speed_factors = excluded.recent_speed_factors,
			stats_count = excluded.stats_count,
			stats_mean = excluded.stats_mean,
			stats_m2 = excluded.stats_m2,
			updated_at = excluded.updated_at
	`

	_, err = db.conn.ExecContext(ctx, query,
		userID,
		p.ID.String(),
		p.Username,
		p.SpeedFactor,
		string(recent),
		p.Stats.Count,
		p.Stats.Mean,
		p.Stats.M2,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// LoadItinerary returns the stored itinerary, or nil if the user has none
func (db *DB) LoadItinerary(ctx context.Context, userID string) (*itinerary.Itinerary, error) {
	query := `
		SELECT days, day_index, progress_index
		FROM itineraries
		WHERE user_id = ?
	`

	var (
		it   itinerary.Itinerary
		days string
	)
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(&days, &it.DayIndex, &it.ProgressIndex)
	if errors.Is(err, sql.ErrNoRows) {
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
func (db *DB) SaveItinerary(ctx context.Context, userID string, it *itinerary.Itinerary) error {
	days, err := json.Marshal(it.Days)
	if err != nil {
		return fmt.Errorf("failed to encode itinerary days: %w", err)
	}

	db.LockWrite()
	defer db.UnlockWrite()

	query := `
		INSERT INTO itineraries (user_id, days, day_index, progress_index, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			days = excluded.days,
			day_index = excluded.day_index,
			progress_index = excluded.progress_index,
			updated_at = excluded.updated_at
	`

	_, err = db.conn.ExecContext(ctx, query,
		userID,
		string(days),
		it.DayIndex,
		it.ProgressIndex,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}
