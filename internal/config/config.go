package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/termcore/internal/recovery"
)

// Config is the complete termcore configuration.
type Config struct {
	Terminal Terminal `toml:"terminal"`
	Shell    Shell    `toml:"shell"`
	Retry    Retry    `toml:"retry"`
	Log      Log      `toml:"log"`
}

// Terminal configures the emulated screen and pty polling.
type Terminal struct {
	// Rows and Cols are the initial geometry.
	Rows int `toml:"rows"`
	Cols int `toml:"cols"`

	// ReadTimeout bounds a single non-blocking pty read.
	ReadTimeout Duration `toml:"read_timeout"`

	// PollInterval is how often the child's exit status is polled.
	PollInterval Duration `toml:"poll_interval"`
}

// Shell configures the child process.
type Shell struct {
	// Path is the preferred shell. Empty means auto-detect.
	Path string `toml:"path"`

	// Env holds extra KEY=VALUE entries for the child.
	Env []string `toml:"env"`

	// Dir is the child's working directory. Empty inherits ours.
	Dir string `toml:"dir"`
}

// Retry configures the resilient connection.
type Retry struct {
	MaxRetries        int      `toml:"max_retries"`
	BaseDelay         Duration `toml:"base_delay"`
	MaxDelay          Duration `toml:"max_delay"`
	BackoffMultiplier float64  `toml:"backoff_multiplier"`
	FailureThreshold  int      `toml:"failure_threshold"`
}

// Recovery converts r to a recovery.Config.
func (r Retry) Recovery() recovery.Config {
	return recovery.Config{
		MaxRetries:        r.MaxRetries,
		BaseDelay:         r.BaseDelay.Duration,
		MaxDelay:          r.MaxDelay.Duration,
		BackoffMultiplier: r.BackoffMultiplier,
		FailureThreshold:  r.FailureThreshold,
	}
}

// Log configures logging.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is console or json.
	Format string `toml:"format"`

	// File is the log destination. Empty means stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	rc := recovery.DefaultConfig()
	return Config{
		Terminal: Terminal{
			Rows:         24,
			Cols:         80,
			ReadTimeout:  Duration{time.Millisecond},
			PollInterval: Duration{10 * time.Millisecond},
		},
		Retry: Retry{
			MaxRetries:        rc.MaxRetries,
			BaseDelay:         Duration{rc.BaseDelay},
			MaxDelay:          Duration{rc.MaxDelay},
			BackoffMultiplier: rc.BackoffMultiplier,
			FailureThreshold:  rc.FailureThreshold,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Duration is a time.Duration written as a string such as "100ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
