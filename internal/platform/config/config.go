package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvFloat returns the float value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid number.
func GetEnvFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvDuration returns the duration value (e.g. "8s", "16ms") of the
// environment variable named by key, or fallback if unset or invalid.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// Settings is the full service configuration read from the environment.
type Settings struct {
	Port                string
	LogLevel            string
	LogFormat           string
	CatalogPath         string
	HistoryDBPath       string
	ScrollThresholdPx   float64
	VisibilityThreshold float64
	FrameInterval       time.Duration
	LoadTimeout         time.Duration
	CaptionHide         time.Duration
	ControlsHide        time.Duration
	ReportTimeout       time.Duration
	Fullscreen          bool
}

// FromEnv reads Settings from the environment with production defaults.
// An empty HistoryDBPath means watch history is kept in memory only.
func FromEnv() Settings {
	return Settings{
		Port:                GetEnv("PORT", "8080"),
		LogLevel:            GetEnv("LOG_LEVEL", "info"),
		LogFormat:           GetEnv("LOG_FORMAT", "json"),
		CatalogPath:         GetEnv("CATALOG_PATH", "catalog.yaml"),
		HistoryDBPath:       GetEnv("HISTORY_DB_PATH", ""),
		ScrollThresholdPx:   GetEnvFloat("SCROLL_THRESHOLD_PX", 150),
		VisibilityThreshold: GetEnvFloat("VISIBILITY_THRESHOLD", 0.3),
		FrameInterval:       GetEnvDuration("FRAME_INTERVAL", 16*time.Millisecond),
		LoadTimeout:         GetEnvDuration("LOAD_TIMEOUT", 8*time.Second),
		CaptionHide:         GetEnvDuration("CAPTION_HIDE", 3*time.Second),
		ControlsHide:        GetEnvDuration("CONTROLS_HIDE", 3*time.Second),
		ReportTimeout:       GetEnvDuration("REPORT_TIMEOUT", 5*time.Second),
		Fullscreen:          GetEnv("FULLSCREEN", "on") != "off",
	}
}
