package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/the-biKing/hikingTW/internal/engine"
	"github.com/the-biKing/hikingTW/internal/match"
	"github.com/the-biKing/hikingTW/internal/pace"
	"github.com/the-biKing/hikingTW/internal/route"
)

// Config holds all configuration for the navigation service
type Config struct {
	// Trail data
	DataDir string
	Regions []string

	// Storage
	DatabasePath      string
	DatabaseURL       string
	RetentionDuration time.Duration
	UserID            string

	// HTTP
	Port           string
	AllowedOrigins []string

	// Route state
	OnRouteThreshold float64
	GiveUpThreshold  float64

	// Direction disambiguation
	DirectionWindow int
	MinMovement     float64

	// Pace learning
	NodeThreshold      float64
	SpeedFactorMin     float64
	SpeedFactorMax     float64
	RecentSpeedFactors int

	// Location history
	HistoryInterval time.Duration
	HistorySize     int
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	cfg := &Config{
		// Trail data
		DataDir: getEnv("DATA_DIR", "./data"),
		Regions: getEnvList("REGIONS"),

		// Storage
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RetentionDuration: time.Duration(getEnvInt("RETENTION_HOURS", 720)) * time.Hour,
		UserID:            getEnv("USER_ID", "default"),

		// HTTP
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),

		// Route state
		OnRouteThreshold: getEnvFloat("ON_ROUTE_THRESHOLD_M", route.DefaultOnRouteThreshold),
		GiveUpThreshold:  getEnvFloat("OFF_ROUTE_GIVEUP_M", route.DefaultGiveUpThreshold),

		// Direction disambiguation
		DirectionWindow: getEnvInt("DIRECTION_WINDOW", match.DefaultDirectionWindow),
		MinMovement:     getEnvFloat("MIN_MOVEMENT_DEG2", match.DefaultMinMovement),

		// Pace learning
		NodeThreshold:      getEnvFloat("NODE_THRESHOLD_M", pace.DefaultNodeThreshold),
		SpeedFactorMin:     getEnvFloat("SPEED_FACTOR_MIN", pace.DefaultMinFactor),
		SpeedFactorMax:     getEnvFloat("SPEED_FACTOR_MAX", pace.DefaultMaxFactor),
		RecentSpeedFactors: getEnvInt("RECENT_SPEED_FACTORS", pace.DefaultRecentSamples),

		// Location history
		HistoryInterval: time.Duration(getEnvInt("HISTORY_INTERVAL_SECONDS", 10)) * time.Second,
		HistorySize:     getEnvInt("HISTORY_SIZE", 20),
	}

	// Derived paths
	cfg.DatabasePath = getEnv("SQLITE_DATABASE", filepath.Join(cfg.DataDir, "hiking.db"))

	return cfg
}

// Session returns the engine configuration
func (c *Config) Session() engine.Config {
	return engine.Config{
		UserID: c.UserID,
		Match: match.Config{
			DirectionWindow: c.DirectionWindow,
			MinMovement:     c.MinMovement,
		},
		Route: route.Thresholds{
			OnRoute: c.OnRouteThreshold,
			GiveUp:  c.GiveUpThreshold,
		},
		Pace: pace.Config{
			MinFactor:     c.SpeedFactorMin,
			MaxFactor:     c.SpeedFactorMax,
			RecentSamples: c.RecentSpeedFactors,
		},
		NodeThreshold:   c.NodeThreshold,
		HistoryInterval: c.HistoryInterval,
		HistorySize:     c.HistorySize,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
