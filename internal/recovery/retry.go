package recovery

import (
	"context"
	"errors"
	"fmt"
)

// ErrRetriesExhausted is wrapped by errors returned after every attempt
// failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Do calls fn up to cfg.Attempts() times, sleeping cfg.Delay(attempt)
// between attempts. fn receives the zero-based attempt number. When stop
// is non-nil and reports true for an error, that error is returned
// immediately.
func Do[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error), stop func(error) bool) (T, error) {
	var zero T
	attempts := cfg.Attempts()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if stop != nil && stop(err) {
			return zero, err
		}

		// Don't wait after last attempt
		if attempt == attempts-1 {
			break
		}
		if err := Sleep(ctx, cfg.Delay(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

// DoFunc is a convenience wrapper for Do with no return value.
func DoFunc(ctx context.Context, cfg Config, fn func(attempt int) error, stop func(error) bool) error {
	_, err := Do(ctx, cfg, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	}, stop)
	return err
}
