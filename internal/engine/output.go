package engine

import (
	"time"

	"github.com/the-biKing/hikingTW/internal/match"
	"github.com/the-biKing/hikingTW/internal/pace"
	"github.com/the-biKing/hikingTW/internal/progress"
	"github.com/the-biKing/hikingTW/internal/route"
)

// Output is the snapshot the host renders after every fix.
// Idle snapshots carry the distance to the start of the day's plan; off-route
// snapshots carry the match distance and the matched point's elevation.
type Output struct {
	Time              time.Time         `json:"time"`
	State             route.State       `json:"state"`
	Match             *match.Result     `json:"match,omitempty"`
	Progress          *progress.Metrics `json:"progress,omitempty"`
	PrevWaypointID    string            `json:"prevWaypointId,omitempty"`
	NextWaypointID    string            `json:"nextWaypointId,omitempty"`
	MatchedElevationM float64           `json:"matchedElevationM"`
	BearingToNextDeg  float64           `json:"bearingToNextDeg"`
	DistanceToStartM  *float64          `json:"distanceToStartM,omitempty"`
	RemainingMinutes  float64           `json:"remainingMinutes"`
	SpeedFactor       float64           `json:"speedFactor"`
	TimerSeconds      float64           `json:"timerSeconds"`
	DayIndex          int               `json:"dayIndex"`
	ProgressIndex     int               `json:"progressIndex"`
	DayAdvanced       bool              `json:"dayAdvanced,omitempty"`

	Alert       *Alert            `json:"alert,omitempty"`
	Completion  *pace.Completion  `json:"completion,omitempty"`
	Observation *pace.Observation `json:"observation,omitempty"`
}

// DistanceToNextM returns the distance to the next waypoint, 0 without progress
func (o Output) DistanceToNextM() float64 {
	if o.Progress == nil {
		return 0
	}
	return o.Progress.DistanceToNext
}

// ElevationChangeToNextM returns the dominant elevation trend to the next waypoint
func (o Output) ElevationChangeToNextM() float64 {
	if o.Progress == nil {
		return 0
	}
	return o.Progress.ElevationChange
}

// ETAMinutes returns the personalized time to the next waypoint
func (o Output) ETAMinutes() float64 {
	if o.Progress == nil {
		return 0
	}
	return o.Progress.ETAMinutes
}

// clone copies the pointer fields so callers cannot mutate session state
func (o Output) clone() Output {
	c := o
	if o.Match != nil {
		m := *o.Match
		c.Match = &m
	}
	if o.Progress != nil {
		p := *o.Progress
		c.Progress = &p
	}
	if o.DistanceToStartM != nil {
		d := *o.DistanceToStartM
		c.DistanceToStartM = &d
	}
	return c
}

// CurrentMatch returns the latest match, if any
func (s *Session) CurrentMatch() (match.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.Match == nil {
		return match.Result{}, false
	}
	return *s.last.Match, true
}

// RouteState returns the current route state
func (s *Session) RouteState() route.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// NextWaypointID returns the waypoint ahead, empty without a match
func (s *Session) NextWaypointID() string {
	return s.Snapshot().NextWaypointID
}

// PrevWaypointID returns the waypoint behind, empty without a match
func (s *Session) PrevWaypointID() string {
	return s.Snapshot().PrevWaypointID
}

// DistanceToNextM returns the distance to the next waypoint
func (s *Session) DistanceToNextM() float64 {
	return s.Snapshot().DistanceToNextM()
}

// ElevationChangeToNextM returns the elevation trend to the next waypoint
func (s *Session) ElevationChangeToNextM() float64 {
	return s.Snapshot().ElevationChangeToNextM()
}

// ETAMinutes returns the ETA to the next waypoint
func (s *Session) ETAMinutes() float64 {
	return s.Snapshot().ETAMinutes()
}
