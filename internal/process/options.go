//go:build linux || darwin

package process

import (
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often WaitForExit polls the child.
const DefaultPollInterval = 10 * time.Millisecond

type options struct {
	pollInterval time.Duration
	logger       *zap.Logger
}

func defaultOptions() options {
	return options{
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}
}

// Option configures a Manager or Relay.
type Option func(*options)

// WithPollInterval sets the interval between reap attempts.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
