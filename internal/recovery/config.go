package recovery

import (
	"context"
	"math"
	"time"
)

// Config configures retry and backoff behavior.
type Config struct {
	// MaxRetries is the number of attempts an operation gets.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// BackoffMultiplier scales the delay after each attempt.
	BackoffMultiplier float64

	// FailureThreshold is the number of consecutive unclassified failures
	// after which the connection is presumed dead.
	FailureThreshold int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        5,
		BaseDelay:         100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		FailureThreshold:  3,
	}
}

// Delay returns min(BaseDelay * BackoffMultiplier^attempt, MaxDelay).
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(c.BaseDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	if d >= float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Attempts returns MaxRetries, with a floor of one attempt.
func (c Config) Attempts() int {
	return max(c.MaxRetries, 1)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
