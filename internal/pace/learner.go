package pace

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Default outlier bounds on an observed factor
const (
	DefaultMinFactor = 0.1
	DefaultMaxFactor = 2.0
)

// StandardTimes resolves the reference traversal time of a directed edge
type StandardTimes interface {
	StandardTime(fromID, toID string) (float64, bool)
}

// ProfileStore defines the interface for profile persistence
type ProfileStore interface {
	LoadProfile(ctx context.Context, userID string) (*Profile, error)
	SaveProfile(ctx context.Context, userID string, profile *Profile) error
}

// Config bounds what the learner accepts
type Config struct {
	MinFactor     float64
	MaxFactor     float64
	RecentSamples int
}

// DefaultConfig returns 0.1 - 2.0 with a 5 sample rolling average
func DefaultConfig() Config {
	return Config{
		MinFactor:     DefaultMinFactor,
		MaxFactor:     DefaultMaxFactor,
		RecentSamples: DefaultRecentSamples,
	}
}

// Observation is the outcome of feeding one completion to the learner
type Observation struct {
	Factor      float64 `json:"factor"`
	Accepted    bool    `json:"accepted"`
	SpeedFactor float64 `json:"speedFactor"`
}

// Learner updates the user's speed factor from completed walks.
// Updates are serialized so concurrent completions never lose a sample.
type Learner struct {
	times  StandardTimes
	store  ProfileStore
	userID string
	cfg    Config

	mu      sync.Mutex
	profile *Profile
}

// NewLearner creates a learner owning profile. store may be nil for an
// in-memory profile.
func NewLearner(times StandardTimes, store ProfileStore, userID string, profile *Profile, cfg Config) *Learner {
	if cfg.MinFactor <= 0 {
		cfg.MinFactor = DefaultMinFactor
	}
	if cfg.MaxFactor <= cfg.MinFactor {
		cfg.MaxFactor = DefaultMaxFactor
	}
	if cfg.RecentSamples <= 0 {
		cfg.RecentSamples = DefaultRecentSamples
	}
	if profile == nil {
		profile = NewProfile(userID)
	}
	return &Learner{
		times:   times,
		store:   store,
		userID:  userID,
		cfg:     cfg,
		profile: profile,
	}
}

// Observe turns a completion into an observed factor and, if plausible, folds
// it into the rolling average and persists the profile.
// Unknown edges and outliers are logged and skipped.
func (l *Learner) Observe(ctx context.Context, c Completion) (Observation, error) {
	std, ok := l.times.StandardTime(c.FromID, c.ToID)
	if !ok || std <= 0 {
		log.Printf("Pace: no standard time for %s -> %s, skipping", c.FromID, c.ToID)
		return Observation{SpeedFactor: l.SpeedFactor()}, nil
	}

	factor := c.Minutes() / std
	return l.Record(ctx, factor)
}

// Record applies an observed factor directly
func (l *Learner) Record(ctx context.Context, factor float64) (Observation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if factor < l.cfg.MinFactor || factor > l.cfg.MaxFactor {
		log.Printf("Pace: discarding implausible factor %.2f", factor)
		return Observation{Factor: factor, SpeedFactor: l.profile.Factor()}, nil
	}

	l.profile.Push(factor, l.cfg.RecentSamples)
	obs := Observation{Factor: factor, Accepted: true, SpeedFactor: l.profile.SpeedFactor}
	log.Printf("Pace: accepted factor %.2f, speed factor now %.2f (%d samples)",
		factor, obs.SpeedFactor, len(l.profile.RecentSpeedFactors))

	if l.store == nil {
		return obs, nil
	}
	if err := l.store.SaveProfile(ctx, l.userID, l.profile.Clone()); err != nil {
		return obs, fmt.Errorf("failed to save profile: %w", err)
	}
	return obs, nil
}

// SpeedFactor returns the current factor
func (l *Learner) SpeedFactor() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile.Factor()
}

// Profile returns a copy of the current profile
func (l *Learner) Profile() *Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile.Clone()
}
