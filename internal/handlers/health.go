package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is implemented by the profile stores
type Pinger interface {
	Ping(ctx context.Context) error
}

// GraphStats reports how much of the trail network is loaded
type GraphStats interface {
	SegmentCount() int
}

// HealthHandler handles GET /health
type HealthHandler struct {
	store Pinger
	graph GraphStats
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, graph GraphStats) *HealthHandler {
	return &HealthHandler{store: store, graph: graph}
}

// GetHealth handles GET /health with a database connectivity test
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"segments":  h.graph.SegmentCount(),
		"timestamp": time.Now().UTC(),
	})
}
