package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestLoadHonoursPort(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
}

func TestPortOverridesYAML(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)

	t.Setenv("FOOTPRINT_HTTP_ADDR", ":9000")
	cfg, err = Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "data/sheet.csv", cfg.Source)
	assert.Equal(t, "footprint.duckdb", cfg.DuckDBPath)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FOOTPRINT_LOG_LEVEL", "warn")
	t.Setenv("FOOTPRINT_CONCURRENCY", "0")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("FOOTPRINT_CONCURRENCY", "many")
	_, err := Load("")
	assert.Error(t, err)
}
