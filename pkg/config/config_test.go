package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file::memory:?cache=shared")
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("AI_MODEL", "llama3.1")
	t.Setenv("ASYNQ_CONCURRENCY", "1")
	t.Setenv("GOMAXPROCS", "0")
}

func TestLoadParsesDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("CACHE_TTL", "10m")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, c.AITimeout)
	require.Equal(t, 10*time.Minute, c.CacheTTL)
	require.Equal(t, 24*time.Hour, c.TokenTTL)
	require.Equal(t, "memory", c.CacheBackend)
	require.True(t, c.IsDevelopment())
	require.Same(t, c, Get())
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_PROVIDER", "gemini")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRedisCacheNeedsAddr(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")

	_, err := Load()
	require.ErrorContains(t, err, "REDIS_ADDR")
}
