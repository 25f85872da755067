//go:build linux || darwin

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/termcore/internal/config"
	"github.com/dshills/termcore/internal/process"
	"github.com/dshills/termcore/internal/session"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(process.Code(0)))
	assert.Equal(t, 3, exitCode(process.Code(3)))
	assert.Equal(t, 137, exitCode(process.Signaled(9)))
	assert.Equal(t, 0, exitCode(process.Running()))
}

func TestFinish(t *testing.T) {
	statuses := make(chan process.ExitStatus, 1)
	statuses <- process.Code(7)
	assert.Equal(t, 7, finish(nil, statuses))

	assert.Equal(t, 0, finish(nil, statuses))
	assert.Equal(t, 0, finish(session.ErrClosed, statuses))
	assert.Equal(t, 1, finish(errors.New("boom"), statuses))
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termcore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[terminal]\nrows = 30\ncols = 100\n"), 0o600))
	t.Setenv(config.EnvPrefix+"COLS", "120")

	opts := options{
		configPath: path,
		shell:      "/bin/sh",
		set:        map[string]bool{"shell": true},
	}
	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Terminal.Rows)
	assert.Equal(t, 120, cfg.Terminal.Cols)
	assert.Equal(t, "/bin/sh", cfg.Shell.Path)

	opts.rows = 10
	opts.set["rows"] = true
	cfg, err = loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Terminal.Rows)
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	opts := options{
		logLevel: "loud",
		set:      map[string]bool{"log-level": true},
	}
	_, err := loadConfig(opts)
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}
