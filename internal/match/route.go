package match

import "github.com/the-biKing/hikingTW/internal/geo"

// RoutePoints concatenates the plan's geometry in walking order.
// Edges without geometry are skipped.
func (m *Matcher) RoutePoints(plan []string) []geo.Point {
	if len(plan) < 2 {
		return nil
	}

	var route []geo.Point
	for i := 0; i < len(plan)-1; i++ {
		pts, ok := m.edgePoints(plan[i], plan[i+1])
		if !ok {
			continue
		}
		route = append(route, pts...)
	}
	return route
}

// HasBacktrack reports whether any edge of the plan is walked in both directions
func HasBacktrack(plan []string) bool {
	seen := make(map[[2]string]bool)
	for i := 0; i < len(plan)-1; i++ {
		if seen[[2]string{plan[i+1], plan[i]}] {
			return true
		}
		seen[[2]string{plan[i], plan[i+1]}] = true
	}
	return false
}
