package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/nutrients.db", cfg.Database.Path)
	assert.Equal(t, 900, cfg.RateLimit.Ceiling)
	assert.False(t, cfg.API.Key.IsSet())
}

func TestLoadWithFile_YAMLValues(t *testing.T) {
	path := writeConfigFile(t, `
api:
  key: test-key-123
  timeout: 10s
database:
  path: /tmp/foods.db
checkpoint:
  save_every: 25
ratelimit:
  ceiling: 450
pipeline:
  target_count: 100
`, 0o600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key-123", cfg.API.Key.Value())
	assert.Equal(t, 10*time.Second, cfg.API.Timeout.Duration())
	assert.Equal(t, "/tmp/foods.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Checkpoint.SaveEvery)
	assert.Equal(t, 450, cfg.RateLimit.Ceiling)
	assert.Equal(t, 100, cfg.Pipeline.TargetCount)

	// Unset fields still get defaults.
	assert.Equal(t, "SR Legacy", cfg.API.DataType)
	assert.Equal(t, 200, cfg.Pipeline.PageSize)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
api:
  key: from-file
database:
  path: /tmp/file.db
`, 0o600)

	t.Setenv("NUTRIDB_API_KEY", "from-env")
	t.Setenv("NUTRIDB_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("NUTRIDB_CHECKPOINT_SAVE_EVERY", "10")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.API.Key.Value())
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Checkpoint.SaveEvery)
}

func TestLoadWithFile_LegacyKeyEnvFallback(t *testing.T) {
	t.Setenv("USDA_API_KEY", "legacy-key")

	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.API.Key.Value())
}

func TestLoadWithFile_PrefixedEnvBeatsLegacyEnv(t *testing.T) {
	t.Setenv("USDA_API_KEY", "legacy-key")
	t.Setenv("NUTRIDB_API_KEY", "prefixed-key")

	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.API.Key.Value())
}

func TestLoadWithFile_RejectsWorldReadableFile(t *testing.T) {
	path := writeConfigFile(t, "api:\n  key: leaked\n", 0o644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_RejectsOversizedFile(t *testing.T) {
	path := writeConfigFile(t, "# "+strings.Repeat("x", maxConfigFileSize), 0o600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadWithFile_RejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "api: [unclosed", 0o600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
}

func TestLoadWithFile_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, "pipeline:\n  page_size: 9999\n", 0o600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size")
}
