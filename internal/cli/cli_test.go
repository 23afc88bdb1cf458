package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastbench/fbench/internal/config"
	"github.com/fastbench/fbench/internal/domain"
)

// testGlobals creates a Globals struct with captured stdout/stderr
func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{
		Format:  format,
		Quiet:   false,
		Verbose: false,
		Stdout:  stdout,
		Stderr:  stderr,
		Config:  config.Default(),
	}, stdout, stderr
}

// --- Config Command Tests ---

func TestConfigShowCmd_Run(t *testing.T) {
	t.Run("outputs config in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConfigShowCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		output := stdout.String()
		assert.Contains(t, output, "Current Configuration:")
		assert.Contains(t, output, "format:")
		assert.Contains(t, output, "sampler.interval: 1s")
		assert.Contains(t, output, "Defaults:")
	})

	t.Run("outputs config in NDJSON format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ConfigShowCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var result map[string]interface{}
		err = json.Unmarshal(stdout.Bytes(), &result)
		require.NoError(t, err)

		assert.Equal(t, "config", result["type"])
		assert.Contains(t, result, "format")
		assert.Contains(t, result, "sampler")
		assert.Contains(t, result, "defaults")
	})
}

func TestConfigPathCmd_Run(t *testing.T) {
	t.Run("outputs path info in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConfigPathCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		output := stdout.String()
		// Either shows the path or says no config found
		assert.True(t, strings.Contains(output, "Config file:") || strings.Contains(output, "No configuration file found"))
	})

	t.Run("outputs path info in NDJSON format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ConfigPathCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "config_path", result["type"])
	})
}

func TestConfigGenerateCmd_Run(t *testing.T) {
	globals, stdout, _ := testGlobals("text")
	cmd := &ConfigGenerateCmd{}

	err := cmd.Run(globals)
	require.NoError(t, err)

	output := stdout.String()
	assert.Contains(t, output, "target:")
	assert.Contains(t, output, "modes:")
	assert.Contains(t, output, "cold_command:")
	assert.Contains(t, output, "scrub_key: pgdn")
}

// --- Globals ---

func TestNewGlobalsWithConfig(t *testing.T) {
	t.Run("flags take precedence", func(t *testing.T) {
		cfg := config.Default()
		cfg.Format = "ndjson"
		c := &CLI{Format: "text", Quiet: true}

		g := NewGlobalsWithConfig(c, cfg)
		assert.Equal(t, "text", g.Format)
		assert.True(t, g.Quiet)
	})

	t.Run("config fills unset flags", func(t *testing.T) {
		cfg := config.Default()
		cfg.Format = "text"
		cfg.Verbose = true
		c := &CLI{}

		g := NewGlobalsWithConfig(c, cfg)
		assert.Equal(t, "text", g.Format)
		assert.True(t, g.Verbose)
	})
}

// --- Error Output ---

func TestOutputErrorCommon(t *testing.T) {
	t.Run("ndjson emits a machine-readable error object", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")

		err := outputErrorCommon(globals, "ATTACH_TIMEOUT", "target window not found", "is the target running?")
		require.Error(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "error", result["type"])
		assert.Equal(t, "ATTACH_TIMEOUT", result["code"])
		assert.Equal(t, "target window not found", result["message"])
		assert.Equal(t, "is the target running?", result["hint"])
	})

	t.Run("text goes to stderr with code and hint", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("text")

		err := outputErrorCommon(globals, "RUN_FAILED", "boom", "try again")
		require.Error(t, err)
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Error [RUN_FAILED]: boom")
		assert.Contains(t, stderr.String(), "hint: try again")
	})
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config error", &domain.ConfigError{Field: "workflow", Reason: "unknown"}, "CONFIG_ERROR"},
		{"validation error", &domain.ValidationError{Reason: "gap"}, "VALIDATION_ERROR"},
		{"attach timeout", &domain.AttachTimeoutError{Timeout: time.Minute}, "ATTACH_TIMEOUT"},
		{"sampler error", &domain.SamplerError{Op: "start", Err: errors.New("x")}, "SAMPLER_ERROR"},
		{"failsafe abort", &domain.FailsafeAbort{Sequence: 3}, "FAILSAFE_ABORT"},
		{"external command", &domain.ExternalCommandError{Command: "purge", Err: errors.New("x")}, "EXTERNAL_COMMAND_FAILED"},
		{"cancellation", context.Canceled, "CANCELLED"},
		{"anything else", errors.New("mystery"), "RUN_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}

	t.Run("wrapped errors are unwrapped", func(t *testing.T) {
		wrapped := &domain.SamplerError{Op: "crash", Err: errors.New("exit 1")}
		assert.Equal(t, "SAMPLER_ERROR", errorCode(wrapped))
	})
}

// --- Run Command Validation ---

func TestRunCmdValidation(t *testing.T) {
	t.Run("rejects unknown cache policy", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RunCmd{Mode: "shared_zgy", Workflow: "scrub", CachePolicy: "lukewarm"}

		err := cmd.Run(globals)
		require.Error(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "INVALID_CACHE_POLICY", result["code"])
	})

	t.Run("rejects both log and workflow", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RunCmd{Mode: "shared_zgy", Log: "a.json", Workflow: "scrub", CachePolicy: "warm"}

		err := cmd.Run(globals)
		require.Error(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "INVALID_SOURCE", result["code"])
	})

	t.Run("rejects neither log nor workflow", func(t *testing.T) {
		globals, _, _ := testGlobals("text")
		cmd := &RunCmd{Mode: "shared_zgy", CachePolicy: "warm"}

		err := cmd.Run(globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of")
	})

	t.Run("rejects unconfigured mode", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		globals.Config.Modes = map[string]config.ModeConfig{
			"shared_zgy": {ProjectPath: "D:/p.proj"},
		}
		cmd := &RunCmd{Mode: "nope", Workflow: "scrub", CachePolicy: "warm"}

		err := cmd.Run(globals)
		require.Error(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "UNKNOWN_MODE", result["code"])
	})

	t.Run("rejects malformed attach timeout", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		globals.Config.Target.AttachTimeout = "three minutes"
		cmd := &RunCmd{Mode: "shared_zgy", Workflow: "scrub", CachePolicy: "warm"}

		err := cmd.Run(globals)
		require.Error(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "INVALID_CONFIG", result["code"])
	})
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
