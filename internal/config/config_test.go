package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "ndjson", cfg.Format)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "runs", cfg.OutDir)
	assert.Equal(t, "180s", cfg.Target.AttachTimeout)
	assert.Equal(t, "120s", cfg.Cache.Timeout)
	assert.Equal(t, "1s", cfg.Sampler.Interval)
	assert.Equal(t, []string{".zgy"}, cfg.Sampler.DataExtensions)
	assert.True(t, cfg.Player.Failsafe)
	assert.Equal(t, 100, cfg.Defaults.ScrubCount)
	assert.Equal(t, 40, cfg.Defaults.ScrubDelayMS)
	assert.Equal(t, "pgdn", cfg.Defaults.ScrubKey)
}

func TestHelperCommand(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.HelperCommand())

	cfg.UIAuto.Helper = "fbench-uiauto-helper --log-level warn"
	assert.Equal(t, []string{"fbench-uiauto-helper", "--log-level", "warn"}, cfg.HelperCommand())
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "ndjson", cfg.Format)
		assert.Equal(t, "runs", cfg.OutDir)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		t.Setenv("FBENCH_FORMAT", "text")
		t.Setenv("FBENCH_OPERATOR", "jo")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "jo", cfg.Operator)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644))

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		configContent := `
format: text
quiet: true
operator: jo
out_dir: D:/bench/runs
target:
  exe_path: "C:/Program Files/Target/Target.exe"
  title_hint: "Target"
  attach_timeout: 90s
uiauto:
  helper: fbench-uiauto-helper
modes:
  shared_zgy:
    project_path: "D:/projects/shared.proj"
    hint: "//nas/seismic"
  fast_vzgy:
    project_path: "D:/projects/fast.proj"
cache:
  cold_command: "purge-caches --all"
  timeout: 60s
sampler:
  interval: 500ms
  data_extensions: [".zgy", ".vzgy"]
player:
  failsafe: false
defaults:
  scrub_count: 50
  scrub_delay_ms: 20
  scrub_key: pgup
`
		configPath := filepath.Join(t.TempDir(), "fbench.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "text", cfg.Format)
		assert.True(t, cfg.Quiet)
		assert.Equal(t, "jo", cfg.Operator)
		assert.Equal(t, "D:/bench/runs", cfg.OutDir)
		assert.Equal(t, "C:/Program Files/Target/Target.exe", cfg.Target.ExePath)
		assert.Equal(t, "Target", cfg.Target.TitleHint)
		assert.Equal(t, "90s", cfg.Target.AttachTimeout)
		assert.Equal(t, "fbench-uiauto-helper", cfg.UIAuto.Helper)
		require.Len(t, cfg.Modes, 2)
		assert.Equal(t, "D:/projects/shared.proj", cfg.Modes["shared_zgy"].ProjectPath)
		assert.Equal(t, "//nas/seismic", cfg.Modes["shared_zgy"].Hint)
		assert.Equal(t, "purge-caches --all", cfg.Cache.ColdCommand)
		assert.Equal(t, "60s", cfg.Cache.Timeout)
		assert.Equal(t, "500ms", cfg.Sampler.Interval)
		assert.Equal(t, []string{".zgy", ".vzgy"}, cfg.Sampler.DataExtensions)
		assert.False(t, cfg.Player.Failsafe)
		assert.Equal(t, 50, cfg.Defaults.ScrubCount)
		assert.Equal(t, 20, cfg.Defaults.ScrubDelayMS)
		assert.Equal(t, "pgup", cfg.Defaults.ScrubKey)
	})

	t.Run("unset fields keep defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "fbench.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("format: text\n"), 0644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "180s", cfg.Target.AttachTimeout)
		assert.True(t, cfg.Player.Failsafe)
	})
}
