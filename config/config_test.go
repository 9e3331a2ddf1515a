package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUILL_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Provider)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("QUILL_PROVIDER", "sqlite")
	t.Setenv("QUILL_DATABASE_URL", ":memory:")
	t.Setenv("QUILL_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Provider)
	assert.Equal(t, ":memory:", cfg.URL)
	assert.True(t, cfg.Debug)
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Setenv("QUILL_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/app")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", cfg.URL)
}

func TestConfig_Open(t *testing.T) {
	cfg := &Config{
		Provider:     "sqlite",
		URL:          ":memory:",
		MaxOpenConns: 1,
	}
	eng, err := cfg.Open(context.Background())
	require.NoError(t, err)
	defer eng.Close()

	assert.Equal(t, "sqlite", eng.Provider())

	_, err = eng.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)
}
