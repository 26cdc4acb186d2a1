package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 5*time.Minute, cfg.Activity.CacheTTL)
	assert.False(t, cfg.Activity.CacheEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("ACTIVITY_CACHE_TTL", "90s")
	t.Setenv("ENABLE_ACTIVITY_CACHE", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://club.example.com, ,http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 90*time.Second, cfg.Activity.CacheTTL)
	assert.True(t, cfg.Activity.CacheEnabled)
	assert.Equal(t, []string{"https://club.example.com", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
