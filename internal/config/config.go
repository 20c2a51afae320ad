package config

import (
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	// Server-wide shift policy defaults; projects may override per row
	ScheduledStart     string // "HH:MM", UTC
	LateGraceMinutes   int
	RegularHoursPerDay float64

	// Per-worker lock acquisition budget
	LockRetryAttempts int
}

// Load loads configuration from environment variables
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/tracking/tracking.db"
	}

	return &Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ScheduledStart:     envString("SCHEDULED_START", "07:00"),
		LateGraceMinutes:   envInt("LATE_GRACE_MINUTES", 15),
		RegularHoursPerDay: envFloat("REGULAR_HOURS_PER_DAY", 9.0),
		LockRetryAttempts:  envInt("LOCK_RETRY_ATTEMPTS", 3),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
