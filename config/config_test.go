package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/schedule-reconciler/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "schedule.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SCHED_ADDR", ":9090")
	t.Setenv("SCHED_DB_PATH", ":memory:")
	t.Setenv("SCHED_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN a config file that sets addr and db_path
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7070\"\ndb_path: file.db\n"), 0o600))
	t.Setenv("SCHED_CONFIG", path)

	// AND an env var overriding one of them
	t.Setenv("SCHED_ADDR", ":7171")

	// WHEN loaded, env wins over file, file wins over defaults
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7171", cfg.Addr)
	assert.Equal(t, "file.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_RejectsEmptyAddr(t *testing.T) {
	t.Setenv("SCHED_ADDR", "")

	// Setting the var to empty still loads it, so validation must catch it.
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("SCHED_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := config.Load()
	require.Error(t, err)
}
