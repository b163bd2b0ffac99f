package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/the-biKing/hikingTW/internal/geo"
	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/match"
	"github.com/the-biKing/hikingTW/internal/pace"
	"github.com/the-biKing/hikingTW/internal/progress"
	"github.com/the-biKing/hikingTW/internal/route"
	"github.com/the-biKing/hikingTW/internal/trail"
)

// Graph is everything the session reads from the trail store
type Graph interface {
	match.Graph
	progress.Graph
	ClosestNode(p geo.Point, ids []string) (trail.Node, float64, bool)
	LoadRegion(codes ...string) []string
}

// Store persists the user's profile and itinerary.
// Loads return nil, nil when nothing is stored yet.
type Store interface {
	pace.ProfileStore
	itinerary.Store
}

// CompletionRecorder is implemented by stores that keep a log of walked segments
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, userID string, c pace.Completion, obs pace.Observation) error
}

// Config holds every tunable of a session
type Config struct {
	UserID          string
	Match           match.Config
	Route           route.Thresholds
	Pace            pace.Config
	NodeThreshold   float64
	HistoryInterval time.Duration
	HistorySize     int
}

// DefaultConfig returns the field-tested defaults
func DefaultConfig() Config {
	return Config{
		UserID:          "default",
		Match:           match.DefaultConfig(),
		Route:           route.DefaultThresholds(),
		Pace:            pace.DefaultConfig(),
		NodeThreshold:   pace.DefaultNodeThreshold,
		HistoryInterval: 10 * time.Second,
		HistorySize:     20,
	}
}

// Fix is one location sample from the host's location provider
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Time      time.Time `json:"time"`
}

// Point returns the fix as a geo.Point
func (f Fix) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude, Elevation: f.Altitude}
}

// Alert asks the host to deliver an off-route notification
type Alert struct {
	ID        uuid.UUID `json:"id"`
	At        time.Time `json:"at"`
	DistanceM float64   `json:"distanceM"`
	EdgeID    string    `json:"edgeId"`
}

// Session owns the navigation state of one user: trail graph access, the
// itinerary, the pace model and the transient route state.
// All methods are safe for concurrent use; fixes are applied in call order.
type Session struct {
	graph Graph
	store Store
	cfg   Config

	matcher *match.Matcher
	calc    *progress.Calculator
	learner *pace.Learner

	mu        sync.Mutex
	machine   *route.Machine
	tracker   *pace.Tracker
	itinerary *itinerary.Itinerary
	history   []geo.Point
	historyAt time.Time
	last      Output
}

// NewSession creates a session, restoring the stored profile and itinerary
func NewSession(ctx context.Context, graph Graph, store Store, cfg Config) (*Session, error) {
	if cfg.UserID == "" {
		cfg.UserID = "default"
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}

	profile, err := store.LoadProfile(ctx, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		log.Printf("Session: no stored profile for %s, starting with factor %.1f", cfg.UserID, pace.DefaultSpeedFactor)
		profile = pace.NewProfile(cfg.UserID)
	}

	it, err := store.LoadItinerary(ctx, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}
	if it == nil {
		it = itinerary.New()
	}
	it.Normalize()

	s := &Session{
		graph:     graph,
		store:     store,
		cfg:       cfg,
		matcher:   match.NewMatcher(graph, cfg.Match),
		calc:      progress.NewCalculator(graph),
		learner:   pace.NewLearner(graph, store, cfg.UserID, profile, cfg.Pace),
		machine:   route.NewMachine(cfg.Route),
		tracker:   pace.NewTracker(cfg.NodeThreshold),
		itinerary: it,
	}
	s.last = Output{State: route.Idle, SpeedFactor: profile.Factor(), DayIndex: it.DayIndex}
	s.loadRegionsLocked()

	log.Printf("Session: restored %d day(s), on day %d, speed factor %.2f",
		len(it.Days), it.DayIndex+1, profile.Factor())
	return s, nil
}

// OnFix applies a new location fix and returns the resulting snapshot.
// It never fails: missing data degrades to an idle snapshot.
func (s *Session) OnFix(ctx context.Context, fix Fix) Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fix.Time.IsZero() {
		fix.Time = time.Now()
	}
	user := fix.Point()
	plan := s.itinerary.CurrentPlan()

	// The current fix is the most recent sample of the movement window
	window := append(append([]geo.Point(nil), s.history...), user)
	res, ok := s.matcher.Closest(plan, user, window)
	tr := s.machine.Update(res.Distance, ok)

	out := Output{
		Time:          fix.Time,
		State:         tr.To,
		SpeedFactor:   s.learner.SpeedFactor(),
		DayIndex:      s.itinerary.DayIndex,
		ProgressIndex: s.itinerary.ProgressIndex,
	}

	if tr.Alert {
		out.Alert = &Alert{ID: uuid.New(), At: fix.Time, DistanceM: res.Distance, EdgeID: res.EdgeID}
		log.Printf("Session: off route by %.0fm near %s", res.Distance, res.EdgeID)
	}

	if ok {
		out.Match = &res
		out.PrevWaypointID = plan[res.PlanIndex]
		out.NextWaypointID = plan[res.PlanIndex+1]
		out.MatchedElevationM = res.Point.Elevation
		if next, ok := s.graph.Node(out.NextWaypointID); ok {
			out.BearingToNextDeg = geo.Bearing(user, next.Point())
		}
	}

	switch tr.To {
	case route.Idle:
		if len(plan) > 0 {
			if start, ok := s.graph.Node(plan[0]); ok {
				d := geo.Distance(user, start.Point())
				out.DistanceToStartM = &d
			}
		}
	case route.Active, route.OffRoute:
		if m, ok := s.calc.Compute(plan, res, out.SpeedFactor); ok {
			out.Progress = &m
			out.RemainingMinutes = s.calc.RemainingMinutes(plan, m, res.PlanIndex, out.SpeedFactor)
		}
	}

	if tr.To == route.Active {
		if s.itinerary.SetProgress(res.PlanIndex) {
			out.ProgressIndex = s.itinerary.ProgressIndex
			s.saveItineraryLocked(ctx)
		}
		s.trackPaceLocked(ctx, plan, user, fix.Time, &out)
	}

	out.TimerSeconds = s.tracker.Elapsed(fix.Time).Seconds()
	s.rememberLocked(user, fix.Time)
	s.last = out
	return out
}

// trackPaceLocked feeds waypoint proximity to the pace tracker and handles
// arrivals - caller must hold s.mu lock
func (s *Session) trackPaceLocked(ctx context.Context, plan []string, user geo.Point, now time.Time, out *Output) {
	node, dist, ok := s.graph.ClosestNode(user, plan)
	if !ok {
		return
	}

	wasInside := s.tracker.Inside()
	completion, completed := s.tracker.Update(node.ID, dist, now)
	arrived := !wasInside && s.tracker.Inside()

	if completed {
		out.Completion = &completion
		log.Printf("Session: walked %s -> %s in %.1f min", completion.FromID, completion.ToID, completion.Minutes())

		obs, err := s.learner.Observe(ctx, completion)
		if err != nil {
			log.Printf("Session: %v", err)
		}
		out.Observation = &obs
		out.SpeedFactor = obs.SpeedFactor

		if rec, ok := s.store.(CompletionRecorder); ok {
			if err := rec.RecordCompletion(ctx, s.cfg.UserID, completion, obs); err != nil {
				log.Printf("Session: %v", err)
			}
		}

		if s.itinerary.AdvanceOnCompletion(completion.FromID, completion.ToID) {
			s.dayAdvancedLocked(ctx, out)
			return
		}
	}

	if arrived && s.arrivalEndsDayLocked(plan, node.ID) && s.itinerary.AdvanceOnArrival(node.ID) {
		s.dayAdvancedLocked(ctx, out)
	}
}

// arrivalEndsDayLocked reports whether arriving at nodeID finishes the day:
// the user must have reached the last edge, and on a loop the walk must have
// started from another waypoint - caller must hold s.mu lock
func (s *Session) arrivalEndsDayLocked(plan []string, nodeID string) bool {
	if len(plan) < 2 || s.itinerary.ProgressIndex < len(plan)-2 {
		return false
	}
	from := s.tracker.LeavingID()
	if from == nodeID {
		return false
	}
	return from != "" || plan[0] != plan[len(plan)-1]
}

func (s *Session) dayAdvancedLocked(ctx context.Context, out *Output) {
	out.DayAdvanced = true
	out.DayIndex = s.itinerary.DayIndex
	out.ProgressIndex = s.itinerary.ProgressIndex
	log.Printf("Session: day complete, advancing to day %d", s.itinerary.DayIndex+1)
	s.saveItineraryLocked(ctx)
	s.loadRegionsLocked()
}

// rememberLocked keeps a bounded, time-throttled history - caller must hold s.mu lock
func (s *Session) rememberLocked(p geo.Point, at time.Time) {
	if len(s.history) > 0 && at.Sub(s.historyAt) < s.cfg.HistoryInterval {
		return
	}
	s.history = append(s.history, p)
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = append([]geo.Point(nil), s.history[over:]...)
	}
	s.historyAt = at
}

// OnFixLost records that no location is available, which forces Idle
func (s *Session) OnFixLost(now time.Time) Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := s.machine.Update(0, false)
	out := Output{
		Time:          now,
		State:         tr.To,
		SpeedFactor:   s.learner.SpeedFactor(),
		DayIndex:      s.itinerary.DayIndex,
		ProgressIndex: s.itinerary.ProgressIndex,
		TimerSeconds:  s.tracker.Elapsed(now).Seconds(),
	}
	s.last = out
	return out
}

// Tick refreshes the running timer of the latest snapshot
func (s *Session) Tick(now time.Time) Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last.TimerSeconds = s.tracker.Elapsed(now).Seconds()
	return s.last.clone()
}

// Snapshot returns the latest output
func (s *Session) Snapshot() Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.clone()
}

// SetItinerary replaces the itinerary, resets route state and persists it
func (s *Session) SetItinerary(ctx context.Context, it *itinerary.Itinerary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it = it.Clone()
	it.Normalize()
	s.itinerary = it
	s.resetLocked()
	s.loadRegionsLocked()

	if err := s.store.SaveItinerary(ctx, s.cfg.UserID, it); err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

// SetDay switches the current day manually
func (s *Session) SetDay(ctx context.Context, day int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.itinerary.SetDay(day); err != nil {
		return err
	}
	s.resetLocked()
	s.loadRegionsLocked()

	if err := s.store.SaveItinerary(ctx, s.cfg.UserID, s.itinerary); err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

// EditItinerary applies edit to the itinerary and persists the result.
// Route state is reset when the current day changes.
func (s *Session) EditItinerary(ctx context.Context, edit func(it *itinerary.Itinerary) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.itinerary.Clone()
	if err := edit(it); err != nil {
		return err
	}
	it.Normalize()

	dayChanged := it.DayIndex != s.itinerary.DayIndex || !samePlan(it.CurrentPlan(), s.itinerary.CurrentPlan())
	s.itinerary = it
	if dayChanged {
		s.resetLocked()
		s.loadRegionsLocked()
	}

	if err := s.store.SaveItinerary(ctx, s.cfg.UserID, it); err != nil {
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

func samePlan(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Session) resetLocked() {
	s.machine.Reset()
	s.tracker = pace.NewTracker(s.cfg.NodeThreshold)
	s.history = nil
	s.last = Output{State: route.Idle, SpeedFactor: s.learner.SpeedFactor(), DayIndex: s.itinerary.DayIndex}
}

// Itinerary returns a copy of the itinerary
func (s *Session) Itinerary() *itinerary.Itinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itinerary.Clone()
}

// Profile returns a copy of the pace profile
func (s *Session) Profile() *pace.Profile {
	return s.learner.Profile()
}

// RoutePoints returns the current day's route in walking order
func (s *Session) RoutePoints() ([]string, []geo.Point) {
	s.mu.Lock()
	plan := append([]string(nil), s.itinerary.CurrentPlan()...)
	s.mu.Unlock()
	return plan, s.matcher.RoutePoints(plan)
}

// PlanMinutes estimates the current day with the user's speed factor
func (s *Session) PlanMinutes() float64 {
	s.mu.Lock()
	plan := append([]string(nil), s.itinerary.CurrentPlan()...)
	s.mu.Unlock()
	return s.calc.PlanMinutes(plan, s.learner.SpeedFactor())
}

func (s *Session) saveItineraryLocked(ctx context.Context) {
	if err := s.store.SaveItinerary(ctx, s.cfg.UserID, s.itinerary.Clone()); err != nil {
		log.Printf("Session: failed to save itinerary: %v", err)
	}
}

// loadRegionsLocked makes sure every region the current day touches is loaded
func (s *Session) loadRegionsLocked() {
	seen := make(map[string]bool)
	for _, id := range s.itinerary.CurrentPlan() {
		if code := trail.RegionPrefix(id); code != "" {
			seen[code] = true
		}
	}
	if len(seen) == 0 {
		return
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	s.graph.LoadRegion(codes...)
}
