package pace

import "math"

// Stats holds lifetime running statistics of accepted speed factors using
// Welford's online algorithm, so the full sample history never has to be kept.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"m2"`
}

// Update adds an observation
func (s *Stats) Update(value float64) {
	s.Count++
	delta := value - s.Mean
	s.Mean += delta / float64(s.Count)
	delta2 := value - s.Mean
	s.M2 += delta * delta2
}

// StdDev returns the population standard deviation, 0 below two observations
func (s Stats) StdDev() float64 {
	if s.Count < 2 {
		return 0
	}
	return math.Sqrt(s.M2 / float64(s.Count))
}
