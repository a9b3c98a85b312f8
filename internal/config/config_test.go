package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "*", cfg.AllowedOrigin)
	require.True(t, cfg.EnsureSchema)
	require.Equal(t, 12*time.Hour, cfg.TokenTTL)
	require.Equal(t, 60*time.Second, cfg.SummaryTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestLoadRejectsNonPositiveTokenTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "0s")

	_, err := Load()
	require.Error(t, err)
}
