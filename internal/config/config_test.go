package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/logging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate(), "defaults are valid")
	assert.Equal(t, 16, cfg.Execution.MaxNestingDepth)
	assert.Equal(t, 100, cfg.Process.PollIntervalMs)
	assert.Equal(t, "Ctrl+Alt+Shift+Esc", cfg.General.ForceStopHotkey)
	assert.True(t, cfg.TimedTrigger.Resume())
	assert.Equal(t, int64(10000), cfg.TimedTrigger.Duration().Milliseconds())
}

func TestValidate_ReplacesBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "Postgres"
	cfg.Storage.Path = ""
	cfg.Execution.MaxNestingDepth = 0
	cfg.Process.PollIntervalMs = 1
	cfg.TimedTrigger.DurationMs = -5

	fixed := cfg.Validate()
	assert.ElementsMatch(t, []string{
		"storage.backend", "storage.path", "execution.max_nesting_depth",
		"process.poll_interval_ms", "timed_trigger.duration_ms",
	}, fixed)
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, 16, cfg.Execution.MaxNestingDepth)
}

func TestValidate_SQLiteDefaultPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "SQLite"
	cfg.Storage.Path = " "
	cfg.Validate()
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "logics.db", cfg.Storage.Path)
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	m := NewManagerAt(path, logging.Discard())

	m.Update(func(c *Config) {
		c.TargetProcess = "game.exe"
		c.Storage.Backend = BackendSQLite
		c.TimedTrigger.ArmKeys = []string{"Q"}
	})
	require.NoError(t, m.Save())

	other := NewManagerAt(path, logging.Discard())
	changed := 0
	other.RegisterChangeCallback(func() { changed++ })
	require.NoError(t, other.Load())

	cfg := other.Get()
	assert.Equal(t, "game.exe", cfg.TargetProcess)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, []string{"Q"}, cfg.TimedTrigger.ArmKeys)
	assert.Equal(t, 1, changed)
}

func TestManager_LoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "none.json"), logging.Discard())
	require.NoError(t, m.Load())
	assert.Equal(t, DefaultConfig(), m.Get())
}

func TestManager_LoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"target_process":"x.exe","execution":{"max_nesting_depth":0}}`), 0644))

	m := NewManagerAt(path, logging.Discard())
	require.NoError(t, m.Load())
	cfg := m.Get()
	assert.Equal(t, "x.exe", cfg.TargetProcess)
	assert.Equal(t, 16, cfg.Execution.MaxNestingDepth)
	assert.Equal(t, "F3", cfg.TimedTrigger.ConfirmKey)
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "c.json"), logging.Discard())
	cfg := m.Get()
	cfg.TimedTrigger.ArmKeys[0] = "Z"
	assert.Equal(t, "F1", m.Get().TimedTrigger.ArmKeys[0])
}

func TestManager_Resolve(t *testing.T) {
	m := NewManagerAt(filepath.Join("base", "config.json"), logging.Discard())
	assert.Equal(t, filepath.Join("base", "logics.json"), m.Resolve("logics.json"))
	abs, _ := filepath.Abs("x.db")
	assert.Equal(t, abs, m.Resolve(abs))
	assert.Empty(t, m.Resolve(""))
}
