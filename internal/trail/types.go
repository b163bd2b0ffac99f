package trail

import "github.com/the-biKing/hikingTW/internal/geo"

// Node is a named waypoint on the trail network
type Node struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Elevation *float64 `json:"elevation,omitempty"`
	IsCustom  bool     `json:"isCustom"`
}

// Point returns the node position; a missing elevation reads as 0
func (n Node) Point() geo.Point {
	p := geo.Point{Latitude: n.Latitude, Longitude: n.Longitude}
	if n.Elevation != nil {
		p.Elevation = *n.Elevation
	}
	return p
}

// Segment is a polyline between two waypoints, stored in one direction only.
// ID is "{fromID}_{toID}". Times are reference minutes for an average hiker.
type Segment struct {
	ID              string      `json:"id"`
	StandardTime    float64     `json:"standardTime"`
	RevStandardTime float64     `json:"revStandardTime"`
	Points          []geo.Point `json:"points"`
}

// Usable reports whether the segment has enough geometry to match against
func (s Segment) Usable() bool {
	return len(s.Points) >= 2
}

// NodeCollection is the top-level shape of nodes.json
type NodeCollection struct {
	Nodes []Node `json:"nodes"`
}

// SegmentCollection is the top-level shape of a region segment file
type SegmentCollection struct {
	Segments []Segment `json:"segments"`
}

// SegmentID builds the directed segment id for a node pair
func SegmentID(fromID, toID string) string {
	return fromID + "_" + toID
}
