package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "/v1/connections/callback", cfg.CallbackURL)
	assert.Equal(t, 300*time.Second, cfg.ConnectionTTL())
	assert.Equal(t, 60*time.Second, cfg.SweepInterval())
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout())
	assert.False(t, cfg.StrictCallbackLookup)
	assert.False(t, cfg.RequireDurableStore)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "rediss://cache.internal:6380")
	t.Setenv("PORT", "9090")
	t.Setenv("CONNECTION_TTL_SECONDS", "120")
	t.Setenv("STRICT_CALLBACK_LOOKUP", "true")
	t.Setenv("RATE_LIMIT_PER_MIN", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.ConnectionTTL())
	assert.True(t, cfg.StrictCallbackLookup)
	assert.Equal(t, 10, cfg.RateLimitPerMin)
}

func TestLoadRequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	os.Unsetenv("REDIS_URL")

	_, err := Load()
	assert.Error(t, err)
}

func TestTokenSecretFallback(t *testing.T) {
	cfg := &Config{ConnTokenSecret: "conn-secret", SessionSecret: "session-secret"}
	assert.Equal(t, "conn-secret", cfg.TokenSecret())

	cfg = &Config{SessionSecret: "session-secret"}
	assert.Equal(t, "session-secret", cfg.TokenSecret())

	cfg = &Config{}
	assert.Equal(t, "", cfg.TokenSecret())
}

func TestValidate(t *testing.T) {
	strongSecret := strings.Repeat("s", 40)

	t.Run("requires a token secret", func(t *testing.T) {
		cfg := &Config{RedisURL: "redis://localhost:6379"}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("any non-empty secret outside production", func(t *testing.T) {
		cfg := &Config{RedisURL: "redis://localhost:6379", ConnTokenSecret: "dev"}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects short secret in production", func(t *testing.T) {
		cfg := &Config{RedisURL: "redis://localhost:6379", ConnTokenSecret: "short"}
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("accepts strong secret in production", func(t *testing.T) {
		cfg := &Config{RedisURL: "rediss://cache:6380", ConnTokenSecret: strongSecret}
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("session secret alone satisfies production", func(t *testing.T) {
		cfg := &Config{RedisURL: "rediss://cache:6380", SessionSecret: strongSecret}
		assert.NoError(t, cfg.Validate(true))
	})
}
