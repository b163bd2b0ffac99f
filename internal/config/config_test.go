package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATA_DIR", "REGIONS", "SQLITE_DATABASE", "DATABASE_URL", "PORT", "ON_ROUTE_THRESHOLD_M", "HISTORY_SIZE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DataDir != "./data" || cfg.DatabasePath != filepath.Join("./data", "hiking.db") {
		t.Errorf("paths = %s / %s", cfg.DataDir, cfg.DatabasePath)
	}
	if cfg.Port != "8081" || cfg.UserID != "default" {
		t.Errorf("port %s user %s", cfg.Port, cfg.UserID)
	}
	if len(cfg.Regions) != 0 {
		t.Errorf("Regions = %v, want none", cfg.Regions)
	}

	s := cfg.Session()
	if s.Route.OnRoute != 50 || s.Route.GiveUp != 1000 {
		t.Errorf("thresholds = %+v", s.Route)
	}
	if s.Match.DirectionWindow != 5 || s.Match.MinMovement != 1e-8 {
		t.Errorf("match config = %+v", s.Match)
	}
	if s.Pace.MinFactor != 0.1 || s.Pace.MaxFactor != 2.0 || s.Pace.RecentSamples != 5 {
		t.Errorf("pace config = %+v", s.Pace)
	}
	if s.NodeThreshold != 50 || s.HistoryInterval != 10*time.Second || s.HistorySize != 20 {
		t.Errorf("session config = %+v", s)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/trails")
	t.Setenv("REGIONS", "wm, ys,,")
	t.Setenv("ON_ROUTE_THRESHOLD_M", "35.5")
	t.Setenv("OFF_ROUTE_GIVEUP_M", "800")
	t.Setenv("DIRECTION_WINDOW", "8")
	t.Setenv("SPEED_FACTOR_MAX", "3")
	t.Setenv("HISTORY_INTERVAL_SECONDS", "5")
	t.Setenv("ALLOWED_ORIGINS", "http://a,http://b")

	cfg := Load()
	if cfg.DatabasePath != filepath.Join("/srv/trails", "hiking.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if diff := cmp.Diff([]string{"wm", "ys"}, cfg.Regions); diff != "" {
		t.Errorf("Regions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"http://a", "http://b"}, cfg.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}

	s := cfg.Session()
	if s.Route.OnRoute != 35.5 || s.Route.GiveUp != 800 || s.Match.DirectionWindow != 8 || s.Pace.MaxFactor != 3 {
		t.Errorf("session config = %+v", s)
	}
	if s.HistoryInterval != 5*time.Second {
		t.Errorf("HistoryInterval = %v", s.HistoryInterval)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("HISTORY_SIZE", "many")
	t.Setenv("NODE_THRESHOLD_M", "near")

	cfg := Load()
	if cfg.HistorySize != 20 || cfg.NodeThreshold != 50 {
		t.Errorf("fallbacks = %d / %v", cfg.HistorySize, cfg.NodeThreshold)
	}
}
