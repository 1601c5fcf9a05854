package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuning(t *testing.T) {
	tuning := DefaultTuning()
	assert.Equal(t, 10*time.Second, tuning.DispatcherTick)
	assert.Equal(t, 10*time.Second, tuning.ExecutorTick)
	assert.Equal(t, 5*time.Second, tuning.IngressTick)
	assert.Equal(t, 30*time.Minute, tuning.StaleStepThreshold)
	assert.Equal(t, 120*time.Second, tuning.StalledAfter)
}

func TestLoadMissingTuningFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), cfg.Tuning)
}

func TestLoadTuningOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tuning:
  dispatcher_tick: 3s
  stale_step_threshold: 1h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Tuning.DispatcherTick)
	assert.Equal(t, time.Hour, cfg.Tuning.StaleStepThreshold)
	// Unspecified knobs keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Tuning.ExecutorTick)
}

func TestLoadTuningRejectsZeroTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tuning:
  dispatcher_tick: 0s
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "")
	t.Setenv("HEALTH_PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "8090", cfg.HealthPort)
	assert.Equal(t, "main", cfg.GitHubBranch)
}
