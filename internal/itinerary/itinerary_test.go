package itinerary

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func threeDays() *Itinerary {
	return New(
		[]string{"A", "B", "C"},
		[]string{"C", "D"},
		[]string{"D", "E", "F"},
	)
}

func TestAdvanceOnArrival(t *testing.T) {
	it := threeDays()
	it.ProgressIndex = 1

	if it.AdvanceOnArrival("B") {
		t.Error("B is not the last waypoint of day 1")
	}
	if !it.AdvanceOnArrival("C") {
		t.Fatal("arriving at C should advance")
	}
	if it.DayIndex != 1 || it.ProgressIndex != 0 {
		t.Errorf("cursor = day %d progress %d, want 1 / 0", it.DayIndex, it.ProgressIndex)
	}
	if diff := cmp.Diff([]string{"C", "D"}, it.CurrentPlan()); diff != "" {
		t.Errorf("CurrentPlan mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceOnCompletion(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     bool
	}{
		{"last segment", "B", "C", true},
		{"last segment reversed", "C", "B", false},
		{"earlier segment", "A", "B", false},
		{"unrelated", "X", "C", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it := threeDays()
			if got := it.AdvanceOnCompletion(tc.from, tc.to); got != tc.want {
				t.Errorf("AdvanceOnCompletion = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNoAdvancePastLastDay(t *testing.T) {
	it := threeDays()
	if err := it.SetDay(2); err != nil {
		t.Fatal(err)
	}
	it.ProgressIndex = 2

	if it.AdvanceOnArrival("F") {
		t.Error("last day must not advance")
	}
	if it.DayIndex != 2 || it.ProgressIndex != 2 {
		t.Errorf("cursor changed: day %d progress %d", it.DayIndex, it.ProgressIndex)
	}
}

func TestSetDay(t *testing.T) {
	it := threeDays()
	it.ProgressIndex = 2

	if err := it.SetDay(1); err != nil {
		t.Fatalf("SetDay(1) failed: %v", err)
	}
	if it.ProgressIndex != 0 {
		t.Error("SetDay should reset progress")
	}

	for _, i := range []int{-1, 3} {
		if err := it.SetDay(i); !errors.Is(err, ErrDayOutOfRange) {
			t.Errorf("SetDay(%d) error = %v, want ErrDayOutOfRange", i, err)
		}
	}
	if it.DayIndex != 1 {
		t.Errorf("failed SetDay moved the cursor to %d", it.DayIndex)
	}
}

func TestPreviousNext(t *testing.T) {
	it := threeDays()

	if it.Previous() {
		t.Error("Previous on day 0 should fail")
	}
	if !it.Next() || !it.Next() {
		t.Fatal("Next should reach day 2")
	}
	if it.Next() {
		t.Error("Next past the last day should fail")
	}
	if !it.Previous() || it.DayIndex != 1 {
		t.Errorf("Previous should return to day 1, at %d", it.DayIndex)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		day      int
		del      int
		wantDay  int
		wantPlan []string
	}{
		{"before cursor", 2, 0, 1, []string{"D", "E", "F"}},
		{"at cursor", 1, 1, 1, []string{"D", "E", "F"}},
		{"after cursor", 0, 2, 0, []string{"A", "B", "C"}},
		{"last day at cursor", 2, 2, 0, []string{"A", "B", "C"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it := threeDays()
			it.SetDay(tc.day)
			if err := it.Delete(tc.del); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if it.DayIndex != tc.wantDay {
				t.Errorf("DayIndex = %d, want %d", it.DayIndex, tc.wantDay)
			}
			if diff := cmp.Diff(tc.wantPlan, it.CurrentPlan()); diff != "" {
				t.Errorf("CurrentPlan mismatch (-want +got):\n%s", diff)
			}
		})
	}

	it := threeDays()
	if err := it.Delete(5); !errors.Is(err, ErrDayOutOfRange) {
		t.Errorf("Delete(5) error = %v", err)
	}
}

func TestSetProgress(t *testing.T) {
	it := threeDays()

	if !it.SetProgress(1) || it.ProgressIndex != 1 {
		t.Error("SetProgress(1) should move forward")
	}
	if it.SetProgress(0) || it.ProgressIndex != 1 {
		t.Error("progress must not move backwards")
	}
}

func TestEmptyItinerary(t *testing.T) {
	var it *Itinerary
	if it.CurrentPlan() != nil {
		t.Error("nil itinerary should have no plan")
	}

	it = New()
	if it.CurrentPlan() != nil || it.AdvanceOnArrival("A") || it.AdvanceOnCompletion("A", "B") {
		t.Error("empty itinerary should be inert")
	}
}

func TestNormalizeAndClone(t *testing.T) {
	it := threeDays()
	it.DayIndex = 7
	it.ProgressIndex = 4
	it.Normalize()
	if it.DayIndex != 0 || it.ProgressIndex != 0 {
		t.Errorf("Normalize = day %d progress %d", it.DayIndex, it.ProgressIndex)
	}

	c := it.Clone()
	c.Days[0][0] = "Z"
	if it.Days[0][0] != "A" {
		t.Error("Clone shares plan storage")
	}
}
