package match

import (
	"log"
	"math"

	"github.com/the-biKing/hikingTW/internal/geo"
	"github.com/the-biKing/hikingTW/internal/trail"
)

const (
	// DefaultDirectionWindow is how many recent fixes make up the movement vector
	DefaultDirectionWindow = 5
	// DefaultMinMovement is the squared movement (degrees^2) below which the
	// user is treated as standing still
	DefaultMinMovement = 1e-8

	// tieEpsilon is the distance in meters under which two edges count as equally close
	tieEpsilon = 1e-9
)

// Graph is the part of the trail store the matcher reads
type Graph interface {
	Lookup(fromID, toID string) (seg trail.Segment, forward bool, ok bool)
	Node(id string) (trail.Node, bool)
}

// Result is the user's position matched onto the plan.
// PlanIndex i refers to the edge plan[i] -> plan[i+1] and EdgeID is always
// that canonical directed id, whatever direction the geometry is stored in.
// Direction is -1 when movement history moved the match onto the reverse
// occurrence of a backtracked edge, +1 otherwise.
type Result struct {
	Point     geo.Point `json:"point"`
	EdgeID    string    `json:"edgeId"`
	Direction int       `json:"direction"`
	PlanIndex int       `json:"planIndex"`
	Distance  float64   `json:"distanceM"`
}

// Config tunes direction disambiguation
type Config struct {
	DirectionWindow int
	MinMovement     float64
}

// DefaultConfig returns the field-tested defaults
func DefaultConfig() Config {
	return Config{
		DirectionWindow: DefaultDirectionWindow,
		MinMovement:     DefaultMinMovement,
	}
}

// Matcher projects user fixes onto a plan
type Matcher struct {
	graph Graph
	cfg   Config
}

// NewMatcher creates a matcher over graph
func NewMatcher(graph Graph, cfg Config) *Matcher {
	if cfg.DirectionWindow < 2 {
		cfg.DirectionWindow = DefaultDirectionWindow
	}
	if cfg.MinMovement <= 0 {
		cfg.MinMovement = DefaultMinMovement
	}
	return &Matcher{graph: graph, cfg: cfg}
}

// Closest finds the nearest point of the plan's geometry to user.
// history holds recent fixes, most recent last; it is only consulted when the
// matched edge is travelled in both directions somewhere in the plan.
// Returns false when the plan has fewer than two waypoints or no edge has geometry.
func (m *Matcher) Closest(plan []string, user geo.Point, history []geo.Point) (Result, bool) {
	if len(plan) < 2 {
		return Result{}, false
	}

	var best Result
	bestDist := math.MaxFloat64
	found := false

	for i := 0; i < len(plan)-1; i++ {
		pts, ok := m.edgePoints(plan[i], plan[i+1])
		if !ok {
			continue
		}

		proj, dist, ok := projectOntoPolyline(user, pts)
		if !ok {
			continue
		}

		// Overlapping edges differ only by rounding; the first in plan order wins
		if dist < bestDist-tieEpsilon {
			bestDist = dist
			best = Result{
				Point:     proj,
				EdgeID:    trail.SegmentID(plan[i], plan[i+1]),
				Direction: +1,
				PlanIndex: i,
				Distance:  dist,
			}
			found = true
		}
	}

	if !found {
		return Result{}, false
	}

	return m.disambiguate(plan, user, history, best), true
}

// disambiguate re-targets a match on a backtracked edge to the occurrence the
// user is actually walking, judged by recent movement
func (m *Matcher) disambiguate(plan []string, user geo.Point, history []geo.Point, res Result) Result {
	nodeA := plan[res.PlanIndex]
	nodeB := plan[res.PlanIndex+1]

	reverseIdx := -1
	for i := 0; i < len(plan)-1; i++ {
		if plan[i] == nodeB && plan[i+1] == nodeA {
			reverseIdx = i
			break
		}
	}
	if reverseIdx < 0 {
		return res
	}

	if m.movementDirection(nodeA, nodeB, history) >= 0 {
		return res
	}

	pts, ok := m.edgePoints(nodeB, nodeA)
	if !ok {
		return res
	}
	proj, dist, ok := projectOntoPolyline(user, pts)
	if !ok {
		return res
	}

	return Result{
		Point:     proj,
		EdgeID:    trail.SegmentID(nodeB, nodeA),
		Direction: -1,
		PlanIndex: reverseIdx,
		Distance:  dist,
	}
}

// movementDirection returns +1 when recent movement agrees with nodeA -> nodeB,
// -1 when it opposes it. Too little history or movement yields +1.
func (m *Matcher) movementDirection(nodeA, nodeB string, history []geo.Point) int {
	if len(history) < 2 {
		return +1
	}

	window := history
	if len(window) > m.cfg.DirectionWindow {
		window = window[len(window)-m.cfg.DirectionWindow:]
	}
	first := window[0]
	last := window[len(window)-1]

	moveX := last.Longitude - first.Longitude
	moveY := last.Latitude - first.Latitude
	if moveX*moveX+moveY*moveY < m.cfg.MinMovement {
		return +1
	}

	from, to, ok := m.edgeEnds(nodeA, nodeB)
	if !ok {
		return +1
	}
	edgeX := to.Longitude - from.Longitude
	edgeY := to.Latitude - from.Latitude

	if moveX*edgeX+moveY*edgeY < 0 {
		return -1
	}
	return +1
}

// edgeEnds returns the node coordinates of an edge, falling back to the
// ends of its geometry when a node is not loaded
func (m *Matcher) edgeEnds(nodeA, nodeB string) (geo.Point, geo.Point, bool) {
	a, okA := m.graph.Node(nodeA)
	b, okB := m.graph.Node(nodeB)
	if okA && okB {
		return a.Point(), b.Point(), true
	}

	pts, ok := m.edgePoints(nodeA, nodeB)
	if !ok {
		return geo.Point{}, geo.Point{}, false
	}
	return pts[0], pts[len(pts)-1], true
}

// edgePoints returns usable geometry ordered fromID -> toID
func (m *Matcher) edgePoints(fromID, toID string) ([]geo.Point, bool) {
	seg, forward, ok := m.graph.Lookup(fromID, toID)
	if !ok {
		log.Printf("Matcher: no geometry for edge %s, skipping", trail.SegmentID(fromID, toID))
		return nil, false
	}
	if !seg.Usable() {
		log.Printf("Matcher: segment %s has %d points, skipping", seg.ID, len(seg.Points))
		return nil, false
	}
	if forward {
		return seg.Points, true
	}
	return geo.Reverse(seg.Points), true
}

// projectOntoPolyline finds the closest point over every micro-segment of pts.
// Elevation is interpolated at the same parameter as the position.
func projectOntoPolyline(user geo.Point, pts []geo.Point) (geo.Point, float64, bool) {
	if len(pts) < 2 {
		return geo.Point{}, 0, false
	}

	var best geo.Point
	bestDist := math.MaxFloat64
	for j := 0; j < len(pts)-1; j++ {
		proj := geo.ProjectOntoSegment(user, pts[j], pts[j+1])
		d := geo.Distance(user, proj.Point)
		if d < bestDist {
			bestDist = d
			best = proj.Point
		}
	}
	return best, bestDist, true
}
