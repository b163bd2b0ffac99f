package route

import "log"

// State is the user's adherence to the current plan
type State int

const (
	Idle State = iota
	Active
	OffRoute
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case OffRoute:
		return "offRoute"
	default:
		return "unknown"
	}
}

// MarshalText lets State serialize as its name in JSON snapshots
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	DefaultOnRouteThreshold = 50.0
	DefaultGiveUpThreshold  = 1000.0
)

// Thresholds are the hysteresis band in meters.
// Re-entry happens below OnRoute, abandonment above GiveUp.
type Thresholds struct {
	OnRoute float64
	GiveUp  float64
}

// DefaultThresholds returns 50 m / 1000 m
func DefaultThresholds() Thresholds {
	return Thresholds{OnRoute: DefaultOnRouteThreshold, GiveUp: DefaultGiveUpThreshold}
}

// Transition describes one evaluation of the machine.
// Alert is set only on the fix that moved Active -> OffRoute.
type Transition struct {
	From  State
	To    State
	Alert bool
}

// Changed reports whether the state moved
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Machine tracks route state across fixes. Not safe for concurrent use;
// the owning session serializes fixes.
type Machine struct {
	thresholds Thresholds
	state      State
}

// NewMachine creates a machine in Idle
func NewMachine(thresholds Thresholds) *Machine {
	if thresholds.OnRoute <= 0 {
		thresholds.OnRoute = DefaultOnRouteThreshold
	}
	if thresholds.GiveUp <= thresholds.OnRoute {
		thresholds.GiveUp = DefaultGiveUpThreshold
	}
	return &Machine{thresholds: thresholds}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Thresholds returns the configured band
func (m *Machine) Thresholds() Thresholds {
	return m.thresholds
}

// Update feeds the distance to the plan from the latest match.
// ok=false (no fix or no match) always forces Idle.
func (m *Machine) Update(distance float64, ok bool) Transition {
	from := m.state
	to := m.next(distance, ok)
	m.state = to

	t := Transition{From: from, To: to, Alert: from == Active && to == OffRoute}
	if t.Changed() {
		log.Printf("Route: %s -> %s (distance %.1fm)", from, to, distance)
	}
	return t
}

func (m *Machine) next(d float64, ok bool) State {
	if !ok {
		return Idle
	}

	switch m.state {
	case Idle:
		if d <= m.thresholds.OnRoute {
			return Active
		}
		return Idle
	case Active:
		if d > m.thresholds.OnRoute {
			return OffRoute
		}
		return Active
	case OffRoute:
		if d < m.thresholds.OnRoute {
			return Active
		}
		if d > m.thresholds.GiveUp {
			return Idle
		}
		return OffRoute
	default:
		return Idle
	}
}

// Reset returns the machine to Idle, e.g. when a new plan is loaded
func (m *Machine) Reset() {
	m.state = Idle
}
