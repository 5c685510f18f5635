package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"GPX_FOLDER", "METADATA_FILE", "SERVER_ADDR", "GIN_MODE",
	"LOG_FILE", "LOG_LEVEL", "LOG_FORMAT",
	"GEOCODER_URL", "GEOCODER_USER_AGENT", "GEOCODER_TIMEOUT", "GEOCODER_LIMIT",
}

// isolate clears config variables and runs from an empty directory so no
// stray .env is picked up.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./gpx", cfg.GPXFolder)
	assert.Equal(t, "./metadata.json", cfg.MetadataFile)
	assert.Equal(t, "0.0.0.0:4000", cfg.Addr)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, "./logs/app.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.GeocoderURL)
	assert.Equal(t, "GPX-Route-Editor/2.0", cfg.GeocoderUserAgent)
	assert.Equal(t, 10*time.Second, cfg.GeocoderTimeout)
	assert.Equal(t, 5, cfg.GeocoderLimit)
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GPX_FOLDER", "/data/gpx")
	t.Setenv("SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("GEOCODER_TIMEOUT", "2500ms")
	t.Setenv("GEOCODER_LIMIT", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/gpx", cfg.GPXFolder)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 2500*time.Millisecond, cfg.GeocoderTimeout)
	assert.Equal(t, 3, cfg.GeocoderLimit)
}

func TestLoadFromDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("METADATA_FILE=/data/meta.json\nLOG_LEVEL=debug\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/meta.json", cfg.MetadataFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	isolate(t)
	t.Setenv("GEOCODER_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	isolate(t)
	t.Setenv("GEOCODER_LIMIT", "0")
	_, err = Load()
	assert.Error(t, err)
}
