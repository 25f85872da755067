package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) Config {
	return Config{
		MaxRetries:        retries,
		BaseDelay:         time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		FailureThreshold:  3,
	}
}

func TestRetrySuccess(t *testing.T) {
	result, err := Do(context.Background(), fastConfig(3), func(int) (int, error) {
		return 42, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRetryEventualSuccess(t *testing.T) {
	var seen []int

	result, err := Do(context.Background(), fastConfig(5), func(attempt int) (string, error) {
		seen = append(seen, attempt)
		if attempt < 2 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestRetryExhausted(t *testing.T) {
	last := errors.New("still broken")
	calls := 0

	_, err := Do(context.Background(), fastConfig(3), func(int) (int, error) {
		calls++
		return 0, last
	}, nil)

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, last)
}

func TestRetryStop(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0

	err := DoFunc(context.Background(), fastConfig(5), func(int) error {
		calls++
		return fatal
	}, func(err error) bool {
		return errors.Is(err, fatal)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, fatal, err)
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := DoFunc(ctx, cfg, func(int) error {
		calls++
		return errors.New("fail")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryZeroRetriesRunsOnce(t *testing.T) {
	calls := 0

	_ = DoFunc(context.Background(), fastConfig(0), func(int) error {
		calls++
		return errors.New("fail")
	}, nil)

	assert.Equal(t, 1, calls)
}
