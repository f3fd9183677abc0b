package integration

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// BackoffMultiplier multiplies the delay after each attempt.
	BackoffMultiplier float64

	// RetryableErrors reports which errors trigger another attempt.
	// If nil, all errors are retried.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns the settings used to reach a backend's
// control channel right after its handshake.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry calls fn until it succeeds, returns a non-retryable error, ctx is
// done or MaxAttempts (at least 1) is reached.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.RetryableErrors != nil && !cfg.RetryableErrors(err) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		if cfg.BackoffMultiplier > 0 {
			delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		}
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}
