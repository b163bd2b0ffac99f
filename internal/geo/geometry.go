package geo

import "math"

const earthRadiusMeters = 6371000

// Point is a trail coordinate with elevation in meters
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Projection is the result of projecting a location onto a segment.
// T is the clamped parameter along a->b used for both position and elevation.
type Projection struct {
	Point Point
	T     float64
}

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is Haversine for two Points, ignoring elevation
func Distance(p, q Point) float64 {
	return Haversine(p.Latitude, p.Longitude, q.Latitude, q.Longitude)
}

// Bearing calculates the initial bearing from one point to another in degrees [0, 360)
func Bearing(from, to Point) float64 {
	phi1 := from.Latitude * math.Pi / 180
	phi2 := to.Latitude * math.Pi / 180
	deltaLambda := (to.Longitude - from.Longitude) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// ProjectOntoSegment projects p onto the segment a->b.
// Works in a locally flat (longitude, latitude) plane, which is fine at trail scale.
// A zero-length segment projects to a (t = 0).
func ProjectOntoSegment(p, a, b Point) Projection {
	abx := b.Longitude - a.Longitude
	aby := b.Latitude - a.Latitude
	apx := p.Longitude - a.Longitude
	apy := p.Latitude - a.Latitude

	ab2 := abx*abx + aby*aby
	t := 0.0
	if ab2 > 0 {
		t = Clamp((apx*abx+apy*aby)/ab2, 0, 1)
	}

	return Projection{
		Point: Point{
			Latitude:  a.Latitude + t*aby,
			Longitude: a.Longitude + t*abx,
			Elevation: InterpolateElevation(a.Elevation, b.Elevation, t),
		},
		T: t,
	}
}

// InterpolateElevation linearly interpolates between two elevations
func InterpolateElevation(elevA, elevB, t float64) float64 {
	return elevA + (elevB-elevA)*t
}

// ClosestPointIndex finds the index of the closest point in a list.
// Returns 0 for an empty list.
func ClosestPointIndex(points []Point, target Point) int {
	minDist := math.MaxFloat64
	minIdx := 0

	for i, pt := range points {
		dist := Distance(pt, target)
		if dist < minDist {
			minDist = dist
			minIdx = i
		}
	}

	return minIdx
}

// LineLength calculates the total length of a polyline in meters
func LineLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Reverse returns a reversed copy of points; the input is left untouched
func Reverse(points []Point) []Point {
	out := make([]Point, len(points))
	for i, pt := range points {
		out[len(points)-1-i] = pt
	}
	return out
}

// Clamp constrains a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
