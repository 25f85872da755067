package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "TERMCORE_"

// ApplyEnv overrides cfg from environment variables named prefix plus
// ROWS, COLS, SHELL, LOG_LEVEL, LOG_FILE or MAX_RETRIES. Empty values
// are ignored.
func ApplyEnv(cfg *Config, prefix string) error {
	return applyEnv(cfg, prefix, os.LookupEnv)
}

func applyEnv(cfg *Config, prefix string, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(prefix + name)
		return v, ok && v != ""
	}
	getInt := func(name string, dst *int) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("environment %s%s: %w", prefix, name, err)
		}
		*dst = n
		return nil
	}

	if err := getInt("ROWS", &cfg.Terminal.Rows); err != nil {
		return err
	}
	if err := getInt("COLS", &cfg.Terminal.Cols); err != nil {
		return err
	}
	if err := getInt("MAX_RETRIES", &cfg.Retry.MaxRetries); err != nil {
		return err
	}
	if v, ok := get("SHELL"); ok {
		cfg.Shell.Path = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := get("LOG_FILE"); ok {
		cfg.Log.File = v
	}
	return nil
}
