package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_PORT", "5433")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "agentworld", cfg.User)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
}

func TestLoadConfigRequiresPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidate(t *testing.T) {
	base := Config{
		Password:     "x",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})

	t.Run("idle exceeds open", func(t *testing.T) {
		cfg := base
		cfg.MaxIdleConns = 20
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero open conns", func(t *testing.T) {
		cfg := base
		cfg.MaxOpenConns = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative idle conns", func(t *testing.T) {
		cfg := base
		cfg.MaxIdleConns = -1
		assert.Error(t, cfg.Validate())
	})
}
