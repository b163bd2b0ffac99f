package itinerary

import (
	"context"
	"errors"
	"fmt"
)

// ErrDayOutOfRange is returned when a day index does not exist
var ErrDayOutOfRange = errors.New("day index out of range")

// Itinerary is a multi-day plan list with a cursor on the current day and
// on the progress within that day
type Itinerary struct {
	Days          [][]string `json:"days"`
	DayIndex      int        `json:"dayIndex"`
	ProgressIndex int        `json:"progressIndex"`
}

// Store defines the interface for itinerary persistence
type Store interface {
	LoadItinerary(ctx context.Context, userID string) (*Itinerary, error)
	SaveItinerary(ctx context.Context, userID string, it *Itinerary) error
}

// New creates an itinerary starting on the first day
func New(days ...[]string) *Itinerary {
	it := &Itinerary{}
	for _, d := range days {
		it.Append(d)
	}
	return it
}

// Normalize pulls the cursors back into range, e.g. after loading stale data
func (it *Itinerary) Normalize() {
	if it.DayIndex < 0 || it.DayIndex >= len(it.Days) {
		it.DayIndex = 0
		it.ProgressIndex = 0
	}
	if it.ProgressIndex < 0 {
		it.ProgressIndex = 0
	}
}

// CurrentPlan returns the waypoint ids of the current day, nil when empty
func (it *Itinerary) CurrentPlan() []string {
	if it == nil || it.DayIndex < 0 || it.DayIndex >= len(it.Days) {
		return nil
	}
	return it.Days[it.DayIndex]
}

// IsLastDay reports whether no day follows the current one
func (it *Itinerary) IsLastDay() bool {
	return it.DayIndex+1 >= len(it.Days)
}

// AdvanceOnArrival moves to the next day when nodeID is the final waypoint
// of the current day's plan
func (it *Itinerary) AdvanceOnArrival(nodeID string) bool {
	plan := it.CurrentPlan()
	if len(plan) == 0 || plan[len(plan)-1] != nodeID {
		return false
	}
	return it.advance()
}

// AdvanceOnCompletion moves to the next day when fromID -> toID is exactly the
// last directed segment of the current day's plan
func (it *Itinerary) AdvanceOnCompletion(fromID, toID string) bool {
	plan := it.CurrentPlan()
	if len(plan) < 2 || plan[len(plan)-2] != fromID || plan[len(plan)-1] != toID {
		return false
	}
	return it.advance()
}

func (it *Itinerary) advance() bool {
	if it.IsLastDay() {
		return false
	}
	it.DayIndex++
	it.ProgressIndex = 0
	return true
}

// SetDay jumps to day i and resets progress
func (it *Itinerary) SetDay(i int) error {
	if i < 0 || i >= len(it.Days) {
		return fmt.Errorf("%w: %d of %d", ErrDayOutOfRange, i, len(it.Days))
	}
	it.DayIndex = i
	it.ProgressIndex = 0
	return nil
}

// Previous steps back one day if possible
func (it *Itinerary) Previous() bool {
	return it.SetDay(it.DayIndex-1) == nil
}

// Next steps forward one day if possible
func (it *Itinerary) Next() bool {
	return it.SetDay(it.DayIndex+1) == nil
}

// Append adds a day at the end. Plans are copied.
func (it *Itinerary) Append(plan []string) {
	it.Days = append(it.Days, append([]string(nil), plan...))
}

// Delete removes day i, keeping the cursor on the same day where possible
func (it *Itinerary) Delete(i int) error {
	if i < 0 || i >= len(it.Days) {
		return fmt.Errorf("%w: %d of %d", ErrDayOutOfRange, i, len(it.Days))
	}
	it.Days = append(it.Days[:i], it.Days[i+1:]...)

	switch {
	case i < it.DayIndex:
		it.DayIndex--
	case i == it.DayIndex:
		it.ProgressIndex = 0
	}
	it.Normalize()
	return nil
}

// SetProgress records the plan index reached within the current day.
// Progress never moves backwards.
func (it *Itinerary) SetProgress(planIndex int) bool {
	if planIndex <= it.ProgressIndex {
		return false
	}
	it.ProgressIndex = planIndex
	return true
}

// Clone returns a deep copy
func (it *Itinerary) Clone() *Itinerary {
	c := &Itinerary{DayIndex: it.DayIndex, ProgressIndex: it.ProgressIndex}
	for _, d := range it.Days {
		c.Days = append(c.Days, append([]string(nil), d...))
	}
	return c
}
