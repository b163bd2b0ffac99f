package pace

import "github.com/google/uuid"

const (
	// DefaultSpeedFactor applies until the first accepted sample
	DefaultSpeedFactor = 1.0
	// DefaultRecentSamples bounds the rolling average
	DefaultRecentSamples = 5
)

// Profile is the persisted user pace model
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	Username           string    `json:"username"`
	SpeedFactor        float64   `json:"speedFactor"`
	RecentSpeedFactors []float64 `json:"recentSpeedFactors"`
	Stats              Stats     `json:"stats"`
}

// NewProfile creates a profile with the default speed factor
func NewProfile(username string) *Profile {
	return &Profile{
		ID:          uuid.New(),
		Username:    username,
		SpeedFactor: DefaultSpeedFactor,
	}
}

// Push records an accepted factor, keeps the most recent max samples and
// recomputes SpeedFactor as their mean
func (p *Profile) Push(factor float64, max int) {
	if max <= 0 {
		max = DefaultRecentSamples
	}

	p.RecentSpeedFactors = append(p.RecentSpeedFactors, factor)
	if over := len(p.RecentSpeedFactors) - max; over > 0 {
		p.RecentSpeedFactors = append([]float64(nil), p.RecentSpeedFactors[over:]...)
	}
	p.SpeedFactor = p.mean()
	p.Stats.Update(factor)
}

// Factor returns the speed factor to apply, falling back to the default for
// profiles that were never given one
func (p *Profile) Factor() float64 {
	if p == nil || p.SpeedFactor <= 0 {
		return DefaultSpeedFactor
	}
	return p.SpeedFactor
}

func (p *Profile) mean() float64 {
	if len(p.RecentSpeedFactors) == 0 {
		return DefaultSpeedFactor
	}
	var sum float64
	for _, f := range p.RecentSpeedFactors {
		sum += f
	}
	return sum / float64(len(p.RecentSpeedFactors))
}

// Clone returns a deep copy safe to hand to another goroutine
func (p *Profile) Clone() *Profile {
	c := *p
	c.RecentSpeedFactors = append([]float64(nil), p.RecentSpeedFactors...)
	return &c
}
