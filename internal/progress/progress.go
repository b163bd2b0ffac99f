package progress

import (
	"math"

	"github.com/the-biKing/hikingTW/internal/geo"
	"github.com/the-biKing/hikingTW/internal/match"
)

// Graph is the part of the trail store progress needs
type Graph interface {
	Oriented(fromID, toID string) ([]geo.Point, bool)
	StandardTime(fromID, toID string) (float64, bool)
	SegmentLength(fromID, toID string) float64
}

// Metrics describes the user's progress along the current edge
type Metrics struct {
	FromID          string  `json:"fromId"`
	ToID            string  `json:"toId"`
	ClosestIndex    int     `json:"closestIndex"`
	DistanceToNext  float64 `json:"distanceToNextM"`
	ElevationChange float64 `json:"elevationChangeToNextM"`
	SegmentLength   float64 `json:"segmentLengthM"`
	StandardTime    float64 `json:"standardTimeMin"`
	ETAMinutes      float64 `json:"etaMinutes"`
}

// Calculator turns matches into progress metrics
type Calculator struct {
	graph Graph
}

// NewCalculator creates a calculator reading geometry and times from graph
func NewCalculator(graph Graph) *Calculator {
	return &Calculator{graph: graph}
}

// Compute derives distance, elevation trend and ETA to the end of the matched edge.
// The edge is always read in travel order plan[PlanIndex] -> plan[PlanIndex+1].
// Returns false when the match does not index a plan edge or the edge has no geometry.
func (c *Calculator) Compute(plan []string, res match.Result, speedFactor float64) (Metrics, bool) {
	if res.PlanIndex < 0 || res.PlanIndex+1 >= len(plan) {
		return Metrics{}, false
	}
	from := plan[res.PlanIndex]
	to := plan[res.PlanIndex+1]

	pts, ok := c.graph.Oriented(from, to)
	if !ok || len(pts) < 2 {
		return Metrics{}, false
	}

	idx := ClosestIndex(pts, res.Point)
	remaining := DistanceToEnd(pts, idx)
	length := c.graph.SegmentLength(from, to)

	m := Metrics{
		FromID:          from,
		ToID:            to,
		ClosestIndex:    idx,
		DistanceToNext:  remaining,
		ElevationChange: ElevationTrend(pts, idx),
		SegmentLength:   length,
	}
	if std, ok := c.graph.StandardTime(from, to); ok {
		m.StandardTime = std
		m.ETAMinutes = ETA(std, speedFactor, remaining, length)
	}
	return m, true
}

// ClosestIndex returns the index of the vertex of pts nearest to p
func ClosestIndex(pts []geo.Point, p geo.Point) int {
	return geo.ClosestPointIndex(pts, p)
}

// DistanceToEnd sums the geodesic length of pts from idx to the last point
func DistanceToEnd(pts []geo.Point, idx int) float64 {
	if idx < 0 || idx >= len(pts)-1 {
		return 0
	}
	return geo.LineLength(pts[idx:])
}

// ElevationTrend accumulates gain and loss from idx to the end and returns the
// dominant one: -loss when loss exceeds gain, +gain otherwise
func ElevationTrend(pts []geo.Point, idx int) float64 {
	if idx < 0 || idx >= len(pts)-1 {
		return 0
	}

	var gain, loss float64
	for i := idx; i < len(pts)-1; i++ {
		diff := pts[i+1].Elevation - pts[i].Elevation
		if diff > 0 {
			gain += diff
		} else {
			loss -= diff
		}
	}
	if loss > gain {
		return -loss
	}
	return gain
}

// ETA scales the standard time by the speed factor and the fraction of the
// edge still ahead. segmentLength is floored at 1 m.
func ETA(standardTime, speedFactor, remaining, segmentLength float64) float64 {
	fraction := geo.Clamp(remaining/math.Max(segmentLength, 1), 0, 1)
	return standardTime * speedFactor * fraction
}

// PlanMinutes estimates the whole plan in minutes: standard time of every edge
// in its travel direction scaled by speedFactor. Edges without data count as 0.
func (c *Calculator) PlanMinutes(plan []string, speedFactor float64) float64 {
	var total float64
	for i := 0; i < len(plan)-1; i++ {
		if std, ok := c.graph.StandardTime(plan[i], plan[i+1]); ok {
			total += std
		}
	}
	return total * speedFactor
}

// RemainingMinutes is the ETA of the current edge plus every whole edge after it
func (c *Calculator) RemainingMinutes(plan []string, m Metrics, planIndex int, speedFactor float64) float64 {
	if planIndex < 0 || planIndex+1 >= len(plan) {
		return 0
	}
	return m.ETAMinutes + c.PlanMinutes(plan[planIndex+1:], speedFactor)
}
