package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Pathfinder.ReachRadius)
	assert.Equal(t, 2.0, cfg.Pathfinder.ReachHeight)
	assert.Equal(t, 5.0, cfg.Pathfinder.CleanupDistance)
	assert.Equal(t, 5.0, cfg.Pathfinder.RerouteDistance)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regoth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pathfinder:
  reach_radius: 0.75
clock:
  start_hour: 22
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Pathfinder.ReachRadius)
	assert.Equal(t, 2.0, cfg.Pathfinder.ReachHeight)
	assert.Equal(t, 22, cfg.Clock.StartHour)
	assert.Equal(t, 0.1, cfg.Simulation.TickSeconds)
}

func TestUnknownKeysAreRejected(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("pathfinder:\n  reach_radus: 1\n"), &cfg)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("REGOTH_LOG_LEVEL", "debug")
	t.Setenv("REGOTH_SAVE_DB", "/tmp/x.db")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/x.db", cfg.Savegame.Database)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Clock.StartHour = 24
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Simulation.TickSeconds = 0
	assert.Error(t, cfg.Validate())
}
