package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/the-biKing/hikingTW/internal/engine"
	"github.com/the-biKing/hikingTW/internal/geo"
	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/match"
	"github.com/the-biKing/hikingTW/internal/pace"
)

// Navigator defines the session operations exposed over HTTP
type Navigator interface {
	OnFix(ctx context.Context, fix engine.Fix) engine.Output
	OnFixLost(now time.Time) engine.Output
	Tick(now time.Time) engine.Output
	SetItinerary(ctx context.Context, it *itinerary.Itinerary) error
	SetDay(ctx context.Context, day int) error
	EditItinerary(ctx context.Context, edit func(it *itinerary.Itinerary) error) error
	Itinerary() *itinerary.Itinerary
	Profile() *pace.Profile
	RoutePoints() ([]string, []geo.Point)
	PlanMinutes() float64
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NavigationHandler handles HTTP requests for the navigation session
type NavigationHandler struct {
	nav Navigator
	now func() time.Time
}

// NewNavigationHandler creates a new handler around a session
func NewNavigationHandler(nav Navigator) *NavigationHandler {
	return &NavigationHandler{nav: nav, now: time.Now}
}

// Routes mounts the navigation endpoints on r
func (h *NavigationHandler) Routes(r chi.Router) {
	r.Post("/api/fixes", h.PostFix)
	r.Post("/api/fixes/lost", h.PostFixLost)
	r.Get("/api/status", h.GetStatus)
	r.Get("/api/route", h.GetRoute)
	r.Get("/api/itinerary", h.GetItinerary)
	r.Put("/api/itinerary", h.PutItinerary)
	r.Post("/api/itinerary/days", h.PostDayPlan)
	r.Post("/api/itinerary/day/previous", h.PostPreviousDay)
	r.Post("/api/itinerary/day/next", h.PostNextDay)
	r.Post("/api/itinerary/day/{index}", h.PostDay)
	r.Delete("/api/itinerary/day/{index}", h.DeleteDay)
	r.Get("/api/profile", h.GetProfile)
}

// FixRequest is the JSON body of POST /api/fixes
type FixRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Altitude  float64    `json:"altitude"`
	Time      *time.Time `json:"time,omitempty"`
}

// ItineraryRequest is the JSON body of PUT /api/itinerary
type ItineraryRequest struct {
	Days     [][]string `json:"days"`
	DayIndex int        `json:"dayIndex"`
}

// DayPlanRequest is the JSON body of POST /api/itinerary/days
type DayPlanRequest struct {
	Plan []string `json:"plan"`
}

// ProfileResponse is the JSON response for GET /api/profile
type ProfileResponse struct {
	Profile     *pace.Profile `json:"profile"`
	StdDev      float64       `json:"stdDev"`
	PlanMinutes float64       `json:"planMinutes"`
}

// PostFix handles POST /api/fixes
// Applies one location fix and returns the resulting snapshot
func (h *NavigationHandler) PostFix(w http.ResponseWriter, r *http.Request) {
	var req FixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fix body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required", nil)
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "Coordinates out of range", map[string]interface{}{
			"latitude":  *req.Latitude,
			"longitude": *req.Longitude,
		})
		return
	}

	fix := engine.Fix{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Altitude:  req.Altitude,
		Time:      h.now(),
	}
	if req.Time != nil && !req.Time.IsZero() {
		fix.Time = *req.Time
	}

	writeJSON(w, http.StatusOK, h.nav.OnFix(r.Context(), fix))
}

// PostFixLost handles POST /api/fixes/lost
// Tells the session that the location provider has no fix
func (h *NavigationHandler) PostFixLost(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.nav.OnFixLost(h.now()))
}

// GetStatus handles GET /api/status
// Returns the latest snapshot with the timer refreshed
func (h *NavigationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.nav.Tick(h.now()))
}

// GetRoute handles GET /api/route
// Returns the current day's route as a GeoJSON LineString feature
func (h *NavigationHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	plan, pts := h.nav.RoutePoints()
	if len(pts) < 2 {
		writeError(w, http.StatusNotFound, "No route geometry for the current day", map[string]interface{}{
			"plan": plan,
		})
		return
	}

	line := make(orb.LineString, 0, len(pts))
	elevations := make([]float64, 0, len(pts))
	for _, p := range pts {
		line = append(line, orb.Point{p.Longitude, p.Latitude})
		elevations = append(elevations, p.Elevation)
	}

	feature := geojson.NewFeature(line)
	feature.Properties["plan"] = plan
	feature.Properties["elevations"] = elevations
	feature.Properties["lengthM"] = geo.LineLength(pts)
	feature.Properties["planMinutes"] = h.nav.PlanMinutes()
	feature.Properties["backtracks"] = match.HasBacktrack(plan)

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(feature)
}

// GetItinerary handles GET /api/itinerary
func (h *NavigationHandler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.nav.Itinerary())
}

// PutItinerary handles PUT /api/itinerary
// Replaces the multi-day itinerary and resets route state
func (h *NavigationHandler) PutItinerary(w http.ResponseWriter, r *http.Request) {
	var req ItineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid itinerary body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	it := itinerary.New(req.Days...)
	if err := it.SetDay(req.DayIndex); err != nil && len(req.Days) > 0 {
		writeError(w, http.StatusBadRequest, "dayIndex out of range", map[string]interface{}{
			"dayIndex": req.DayIndex,
			"days":     len(req.Days),
		})
		return
	}

	if err := h.nav.SetItinerary(r.Context(), it); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save itinerary", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, h.nav.Itinerary())
}

// PostDay handles POST /api/itinerary/day/{index}
// Switches the current day manually
func (h *NavigationHandler) PostDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	day, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer", map[string]interface{}{
			"index": raw,
		})
		return
	}

	if err := h.nav.SetDay(r.Context(), day); err != nil {
		if errors.Is(err, itinerary.ErrDayOutOfRange) {
			writeError(w, http.StatusNotFound, "Day not found", map[string]interface{}{
				"index": day,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to switch day", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, h.nav.Itinerary())
}

// PostDayPlan handles POST /api/itinerary/days
// Appends one day to the end of the itinerary
func (h *NavigationHandler) PostDayPlan(w http.ResponseWriter, r *http.Request) {
	var req DayPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid day plan body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	if len(req.Plan) < 2 {
		writeError(w, http.StatusBadRequest, "A day plan needs at least two waypoints", map[string]interface{}{
			"plan": req.Plan,
		})
		return
	}

	err := h.nav.EditItinerary(r.Context(), func(it *itinerary.Itinerary) error {
		it.Append(req.Plan)
		return nil
	})
	h.writeItinerary(w, err)
}

// PostPreviousDay handles POST /api/itinerary/day/previous
func (h *NavigationHandler) PostPreviousDay(w http.ResponseWriter, r *http.Request) {
	err := h.nav.EditItinerary(r.Context(), func(it *itinerary.Itinerary) error {
		if !it.Previous() {
			return fmt.Errorf("%w: already on the first day", itinerary.ErrDayOutOfRange)
		}
		return nil
	})
	h.writeItinerary(w, err)
}

// PostNextDay handles POST /api/itinerary/day/next
func (h *NavigationHandler) PostNextDay(w http.ResponseWriter, r *http.Request) {
	err := h.nav.EditItinerary(r.Context(), func(it *itinerary.Itinerary) error {
		if !it.Next() {
			return fmt.Errorf("%w: already on the last day", itinerary.ErrDayOutOfRange)
		}
		return nil
	})
	h.writeItinerary(w, err)
}

// DeleteDay handles DELETE /api/itinerary/day/{index}
func (h *NavigationHandler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	day, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer", map[string]interface{}{
			"index": raw,
		})
		return
	}

	err = h.nav.EditItinerary(r.Context(), func(it *itinerary.Itinerary) error {
		return it.Delete(day)
	})
	h.writeItinerary(w, err)
}

// writeItinerary answers an itinerary edit with the new itinerary or the error
func (h *NavigationHandler) writeItinerary(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.nav.Itinerary())
	case errors.Is(err, itinerary.ErrDayOutOfRange):
		writeError(w, http.StatusNotFound, "Day not found", map[string]interface{}{
			"internal": err.Error(),
		})
	default:
		writeError(w, http.StatusInternalServerError, "Failed to update itinerary", map[string]interface{}{
			"internal": err.Error(),
		})
	}
}

// GetProfile handles GET /api/profile
func (h *NavigationHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p := h.nav.Profile()
	writeJSON(w, http.StatusOK, ProfileResponse{
		Profile:     p,
		StdDev:      p.Stats.StdDev(),
		PlanMinutes: h.nav.PlanMinutes(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
