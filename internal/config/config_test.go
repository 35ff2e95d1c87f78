package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.WebPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, BackendPostgres, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, float64(5), cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.True(t, cfg.MigrateOnStart)
	assert.False(t, cfg.Production())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "dev-secret")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("SESSION_BACKEND", "Memory")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("MIGRATE_ON_START", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.WebPort)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.MigrateOnStart)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_SECRET=from-file\nGRPC_PORT=6000\n"), 0o600))
	// godotenv does not override variables already set
	t.Setenv("GRPC_PORT", "7000")
	t.Setenv("SESSION_SECRET", "")
	require.NoError(t, os.Unsetenv("SESSION_SECRET"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.SessionSecret)
	assert.Equal(t, "7000", cfg.GRPCPort)
}

func TestValidate(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET is required")

	t.Setenv("SESSION_SECRET", "short")
	t.Setenv("APP_ENV", "production")
	_, err = Load()
	assert.ErrorContains(t, err, "at least 32 bytes")

	t.Setenv("APP_ENV", "development")
	t.Setenv("SESSION_BACKEND", "etcd")
	_, err = Load()
	assert.ErrorContains(t, err, "etcd")
}
