package pace

import (
	"time"

	"github.com/google/uuid"
)

// DefaultNodeThreshold is the waypoint proximity radius in meters
const DefaultNodeThreshold = 50.0

// Completion is emitted when the user arrives at a waypoint after leaving another one
type Completion struct {
	ID      uuid.UUID     `json:"id"`
	FromID  string        `json:"fromId"`
	ToID    string        `json:"toId"`
	Elapsed time.Duration `json:"elapsed"`
	At      time.Time     `json:"at"`
}

// Minutes returns the elapsed time in minutes
func (c Completion) Minutes() float64 {
	return c.Elapsed.Minutes()
}

// Tracker times the walk between waypoints from proximity events.
// It starts inside an unknown waypoint, so the first departure never
// produces a completion.
type Tracker struct {
	threshold float64

	inside    bool
	currentID string
	leavingID string
	timing    bool
	startedAt time.Time
	elapsed   time.Duration
}

// NewTracker creates a tracker with the given proximity radius
func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 {
		threshold = DefaultNodeThreshold
	}
	return &Tracker{threshold: threshold, inside: true}
}

// Update feeds the nearest waypoint and its distance.
// Returns a completion when this fix arrives at a waypoint after a timed departure.
func (t *Tracker) Update(nodeID string, distance float64, now time.Time) (Completion, bool) {
	switch {
	case t.inside && distance > t.threshold:
		t.leavingID = t.currentID
		t.currentID = ""
		t.inside = false
		t.timing = true
		t.startedAt = now
		t.elapsed = 0
		return Completion{}, false

	case !t.inside && distance <= t.threshold:
		t.currentID = nodeID
		t.inside = true
		if !t.timing {
			return Completion{}, false
		}
		t.timing = false
		t.elapsed = now.Sub(t.startedAt)

		if t.leavingID == "" {
			return Completion{}, false
		}
		return Completion{
			ID:      uuid.New(),
			FromID:  t.leavingID,
			ToID:    nodeID,
			Elapsed: t.elapsed,
			At:      now,
		}, true

	case t.inside && t.currentID == "":
		// Session started at a waypoint: remember which one
		if distance <= t.threshold {
			t.currentID = nodeID
		}
	}
	return Completion{}, false
}

// Elapsed returns the running timer while between waypoints, or the frozen
// value of the last completed walk
func (t *Tracker) Elapsed(now time.Time) time.Duration {
	if t.timing {
		return now.Sub(t.startedAt)
	}
	return t.elapsed
}

// Inside reports whether the user is within a waypoint radius
func (t *Tracker) Inside() bool {
	return t.inside
}

// LeavingID returns the waypoint of the last timed departure, empty when the
// user left from somewhere unknown
func (t *Tracker) LeavingID() string {
	return t.leavingID
}

// CurrentID returns the waypoint the user is at, empty while walking
func (t *Tracker) CurrentID() string {
	return t.currentID
}
