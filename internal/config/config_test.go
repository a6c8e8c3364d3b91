package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "development", cfg.Environment)
	require.True(t, cfg.Development())
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, 50, cfg.HistoryLimit)
	require.Empty(t, cfg.DatabaseDSN)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADDR", ":9999")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("HISTORY_LIMIT", "10")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
	require.False(t, cfg.Development())
	require.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, 10, cfg.HistoryLimit)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveHistoryLimit(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HISTORY_LIMIT", "0")

	_, err := Load()
	require.Error(t, err)
}
