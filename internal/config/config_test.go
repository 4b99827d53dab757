package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "/tmp/skytrack/cache.db", cfg.StorePath)
	assert.Equal(t, "https://celestrak.org/NORAD/elements/gp.php", cfg.TLESourceURL)
	assert.Equal(t, 6*time.Hour, cfg.TLECacheTTL)
	assert.Equal(t, 5*time.Second, cfg.TrailStep)
	assert.Equal(t, 5*time.Second, cfg.TrailRefresh)
	assert.Equal(t, 2000, cfg.TrailMaxSamples)
	assert.InDelta(t, 1.04, cfg.TrailRadius, 1e-12)
	assert.Equal(t, time.Second, cfg.PositionInterval)
	assert.Equal(t, 60, cfg.FrameRate)
	assert.Equal(t, 10, cfg.StreamMaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.StreamKeepalive)
	assert.Equal(t, DefaultObjects, cfg.DefaultObjects)
	assert.Equal(t, 256, cfg.PropCacheSize)
	assert.Positive(t, cfg.PropWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SKYTRACK_HTTP_ADDR", ":9090")
	t.Setenv("SKYTRACK_STORE_BACKEND", "memory")
	t.Setenv("SKYTRACK_TRAIL_STEP", "10s")
	t.Setenv("SKYTRACK_FRAME_RATE", "30")
	t.Setenv("SKYTRACK_TRUST_PROXY", "true")
	t.Setenv("SKYTRACK_DEFAULT_OBJECTS", " ISS (ZARYA), ,HST ")
	t.Setenv("SKYTRACK_LOG_LEVEL", "DEBUG")

	cfg, err := Load("", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.TrailStep)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, []string{"ISS (ZARYA)", "HST"}, cfg.DefaultObjects)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SKYTRACK_TRAIL_STEP", "soon")
	t.Setenv("SKYTRACK_TRAIL_MAX_SAMPLES", "-4")
	t.Setenv("SKYTRACK_TRAIL_RADIUS", "big")
	t.Setenv("SKYTRACK_STORE_BACKEND", "postgres")
	t.Setenv("SKYTRACK_TRUST_PROXY", "perhaps")

	var buf bytes.Buffer
	cfg, err := Load("", slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.TrailStep)
	assert.Equal(t, 2000, cfg.TrailMaxSamples)
	assert.InDelta(t, 1.04, cfg.TrailRadius, 1e-12)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.False(t, cfg.TrustProxy)
	assert.Contains(t, buf.String(), "SKYTRACK_TRAIL_STEP")
	assert.Contains(t, buf.String(), "SKYTRACK_STORE_BACKEND")
}

func TestLoad_AuthRequiresToken(t *testing.T) {
	t.Setenv("SKYTRACK_AUTH_ENABLED", "true")

	_, err := Load("", discardLogger())
	require.Error(t, err)

	t.Setenv("SKYTRACK_AUTH_TOKEN", "tok")
	cfg, err := Load("", discardLogger())
	require.NoError(t, err)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, "tok", cfg.AuthToken)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skytrack.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"http_addr": ":7000", "prop_cache_size": 64}`), 0o644))

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, 64, cfg.PropCacheSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/skytrack.json", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}
