package handlers

import (
	"net/http"
	"strings"

	"github.com/the-biKing/hikingTW/internal/trail"
)

// TrailGraph defines the trail data lookups exposed over HTTP
type TrailGraph interface {
	StartNodes(codes []string) []trail.Node
	LoadRegion(codes ...string) []string
}

// TrailHandler handles HTTP requests for static trail data
type TrailHandler struct {
	graph TrailGraph
}

// NewTrailHandler creates a new handler over the trail store
func NewTrailHandler(graph TrailGraph) *TrailHandler {
	return &TrailHandler{graph: graph}
}

// GetTrailheadsResponse is the JSON response for GET /api/trailheads
type GetTrailheadsResponse struct {
	Trailheads []trail.Node `json:"trailheads"`
	Unknown    []string     `json:"unknownRegions,omitempty"`
	Count      int          `json:"count"`
}

// GetTrailheads handles GET /api/trailheads?regions=WM,YS
// Loads the requested regions and lists their start nodes
func (h *TrailHandler) GetTrailheads(w http.ResponseWriter, r *http.Request) {
	var codes []string
	for _, code := range strings.Split(r.URL.Query().Get("regions"), ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}

	if len(codes) == 0 {
		writeError(w, http.StatusBadRequest, "regions parameter is required", nil)
		return
	}

	unknown := h.graph.LoadRegion(codes...)
	starts := h.graph.StartNodes(codes)
	if starts == nil {
		starts = []trail.Node{}
	}

	// Trail data only changes with a redeploy
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, GetTrailheadsResponse{
		Trailheads: starts,
		Unknown:    unknown,
		Count:      len(starts),
	})
}
