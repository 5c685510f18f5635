package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the runtime configuration of the route server and its helpers.
type Config struct {
	GPXFolder    string
	MetadataFile string
	Addr         string
	GinMode      string

	LogFile   string
	LogLevel  string
	LogFormat string

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderLimit     int
}

// Load reads a .env file if present, then the environment, falling back to
// defaults for anything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	cfg := &Config{
		GPXFolder:         getEnv("GPX_FOLDER", "./gpx"),
		MetadataFile:      getEnv("METADATA_FILE", "./metadata.json"),
		Addr:              getEnv("SERVER_ADDR", "0.0.0.0:4000"),
		GinMode:           getEnv("GIN_MODE", "release"),
		LogFile:           getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "GPX-Route-Editor/2.0"),
	}

	timeout, err := time.ParseDuration(getEnv("GEOCODER_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid GEOCODER_TIMEOUT %q", os.Getenv("GEOCODER_TIMEOUT"))
	}
	cfg.GeocoderTimeout = timeout

	limit, err := strconv.Atoi(getEnv("GEOCODER_LIMIT", "5"))
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("invalid GEOCODER_LIMIT %q", os.Getenv("GEOCODER_LIMIT"))
	}
	cfg.GeocoderLimit = limit

	return cfg, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
