package config

import (
	"errors"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/dshills/termcore/internal/terminal"
)

// Validate checks every setting and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if terminal.CheckSize(c.Terminal.Rows, 1) != nil {
		add("terminal.rows", "must be between 1 and 65535", c.Terminal.Rows)
	}
	if terminal.CheckSize(1, c.Terminal.Cols) != nil {
		add("terminal.cols", "must be between 1 and 65535", c.Terminal.Cols)
	}
	if c.Terminal.ReadTimeout.Duration <= 0 {
		add("terminal.read_timeout", "must be positive", c.Terminal.ReadTimeout)
	}
	if c.Terminal.PollInterval.Duration <= 0 {
		add("terminal.poll_interval", "must be positive", c.Terminal.PollInterval)
	}

	if c.Retry.MaxRetries < 1 {
		add("retry.max_retries", "must be at least 1", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay.Duration < 0 {
		add("retry.base_delay", "must not be negative", c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay.Duration < 0 {
		add("retry.max_delay", "must not be negative", c.Retry.MaxDelay)
	}
	if c.Retry.MaxDelay.Duration < c.Retry.BaseDelay.Duration {
		add("retry.max_delay", "must not be less than base_delay", c.Retry.MaxDelay)
	}
	if c.Retry.BackoffMultiplier < 1 {
		add("retry.backoff_multiplier", "must be at least 1", c.Retry.BackoffMultiplier)
	}
	if c.Retry.FailureThreshold < 1 {
		add("retry.failure_threshold", "must be at least 1", c.Retry.FailureThreshold)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		add("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		add("log.format", "must be console or json", c.Log.Format)
	}

	for i, kv := range c.Shell.Env {
		if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
			add("shell.env", "entries must be KEY=VALUE", c.Shell.Env[i])
		}
	}

	return errors.Join(errs...)
}
