package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
)

// Server captures the runtime configuration loaded from environment
// variables so main stays lean. PostgresURL and RedisURL are optional: an
// empty value selects the in-memory fallback for that concern.
type Server struct {
	Addr     string
	LogLevel string

	PostgresURL string
	RedisURL    string

	AccuracyThresholdMeters float64
	LocationTimeout         time.Duration
	RepositoryTimeout       time.Duration
	ScanLatchTTL            time.Duration
}

// FromEnv builds a Server config from environment variables with defaults.
func FromEnv() Server {
	return Server{
		Addr:                    getEnv("TMC_ATTENDANCE_ADDR", ":8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		PostgresURL:             os.Getenv("DATABASE_URL"),
		RedisURL:                os.Getenv("REDIS_URL"),
		AccuracyThresholdMeters: floatEnv("GEO_ACCURACY_THRESHOLD_M", geo.DefaultAccuracyThresholdMeters),
		LocationTimeout:         durationEnv("LOCATION_TIMEOUT", 10*time.Second),
		RepositoryTimeout:       durationEnv("REPOSITORY_TIMEOUT", 15*time.Second),
		ScanLatchTTL:            durationEnv("SCAN_LATCH_TTL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
		return fallback
	}
	return d
}

func floatEnv(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		log.Printf("invalid value for %s, using fallback %g", key, fallback)
		return fallback
	}
	return f
}
