package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "termcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 24, cfg.Terminal.Rows)
	assert.Equal(t, 80, cfg.Terminal.Cols)
	assert.Equal(t, time.Millisecond, cfg.Terminal.ReadTimeout.Duration)
	assert.Equal(t, 10*time.Millisecond, cfg.Terminal.PollInterval.Duration)
	assert.Empty(t, cfg.Shell.Path)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay.Duration)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay.Duration)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
	assert.Equal(t, 3, cfg.Retry.FailureThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestRetryRecovery(t *testing.T) {
	rc := Default().Retry.Recovery()

	assert.Equal(t, 5, rc.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, rc.BaseDelay)
	assert.Equal(t, 30*time.Second, rc.MaxDelay)
	assert.Equal(t, 2.0, rc.BackoffMultiplier)
	assert.Equal(t, 3, rc.FailureThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[terminal]
rows = 40
read_timeout = "2ms"

[shell]
path = "/bin/sh"
env = ["FOO=bar"]

[retry]
max_retries = 8
base_delay = "50ms"

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Terminal.Rows)
	assert.Equal(t, 80, cfg.Terminal.Cols, "unset keys keep defaults")
	assert.Equal(t, 2*time.Millisecond, cfg.Terminal.ReadTimeout.Duration)
	assert.Equal(t, "/bin/sh", cfg.Shell.Path)
	assert.Equal(t, []string{"FOO=bar"}, cfg.Shell.Env)
	assert.Equal(t, 8, cfg.Retry.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.BaseDelay.Duration)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadSyntaxError(t *testing.T) {
	path := writeFile(t, "[terminal\nrows = 1\n")

	_, err := Load(path)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.Path)
	assert.Positive(t, pe.Line)
	assert.Contains(t, err.Error(), "parse error in "+path)
}

func TestLoadBadDuration(t *testing.T) {
	path := writeFile(t, "[retry]\nbase_delay = \"soon\"\n")

	_, err := Load(path)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "soon")
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeFile(t, "[terminal]\nrows = 30\ncolumns = 100\n")

	_, err := Load(path)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "unknown setting")
	assert.Contains(t, pe.Message, "columns")
	assert.Positive(t, pe.Line)
}

func TestLoadReader(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader("[terminal]\ncols = 132\n"))

	require.NoError(t, err)
	assert.Equal(t, 132, cfg.Terminal.Cols)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Shell.Path = "/bin/bash"
	cfg.Retry.MaxDelay = Duration{5 * time.Second}

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "5s")

	back, err := LoadReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg.Shell.Path, back.Shell.Path)
	assert.Equal(t, cfg.Retry.MaxDelay, back.Retry.MaxDelay)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TERMCORE_ROWS":        "50",
		"TERMCORE_COLS":        "200",
		"TERMCORE_SHELL":       "/bin/zsh",
		"TERMCORE_LOG_LEVEL":   "warn",
		"TERMCORE_LOG_FILE":    "/tmp/x.log",
		"TERMCORE_MAX_RETRIES": "2",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg := Default()

	require.NoError(t, ApplyEnv(&cfg, EnvPrefix))

	assert.Equal(t, 50, cfg.Terminal.Rows)
	assert.Equal(t, 200, cfg.Terminal.Cols)
	assert.Equal(t, "/bin/zsh", cfg.Shell.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/x.log", cfg.Log.File)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
}

func TestApplyEnvIgnoresEmpty(t *testing.T) {
	cfg := Default()
	lookup := func(string) (string, bool) { return "", true }

	require.NoError(t, applyEnv(&cfg, EnvPrefix, lookup))

	assert.Equal(t, Default(), cfg)
}

func TestApplyEnvBadInt(t *testing.T) {
	cfg := Default()
	lookup := func(name string) (string, bool) {
		if name == "X_COLS" {
			return "wide", true
		}
		return "", false
	}

	err := applyEnv(&cfg, "X_", lookup)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "X_COLS")
	assert.Equal(t, 80, cfg.Terminal.Cols)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero rows", func(c *Config) { c.Terminal.Rows = 0 }, "terminal.rows"},
		{"huge cols", func(c *Config) { c.Terminal.Cols = 70000 }, "terminal.cols"},
		{"zero read timeout", func(c *Config) { c.Terminal.ReadTimeout = Duration{} }, "terminal.read_timeout"},
		{"zero poll interval", func(c *Config) { c.Terminal.PollInterval = Duration{} }, "terminal.poll_interval"},
		{"zero retries", func(c *Config) { c.Retry.MaxRetries = 0 }, "retry.max_retries"},
		{"negative base delay", func(c *Config) { c.Retry.BaseDelay = Duration{-time.Second} }, "retry.base_delay"},
		{"max below base", func(c *Config) { c.Retry.MaxDelay = Duration{time.Millisecond} }, "retry.max_delay"},
		{"multiplier below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, "retry.backoff_multiplier"},
		{"zero threshold", func(c *Config) { c.Retry.FailureThreshold = 0 }, "retry.failure_threshold"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"empty level", func(c *Config) { c.Log.Level = "" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad env", func(c *Config) { c.Shell.Env = []string{"NOEQUALS"} }, "shell.env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.path, ve.Path)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Terminal.Rows = 0
	cfg.Terminal.Cols = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal.rows")
	assert.Contains(t, err.Error(), "terminal.cols")
}
