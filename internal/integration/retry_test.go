package integration

import (
	"context"
	"errors"
	"testing"
	"time"
)

func quickRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialDelay:      5 * time.Millisecond,
		MaxDelay:          20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetry_Success(t *testing.T) {
	result, err := Retry(context.Background(), DefaultRetryConfig(), func() (int, error) {
		return 4444, nil
	})

	if err != nil {
		t.Errorf("Retry error: %v", err)
	}
	if result != 4444 {
		t.Errorf("result = %d, want 4444", result)
	}
}

func TestRetry_EventualSuccess(t *testing.T) {
	var attempts int

	result, err := Retry(context.Background(), quickRetry(5), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("connection refused")
		}
		return "connected", nil
	})

	if err != nil {
		t.Errorf("Retry error: %v", err)
	}
	if result != "connected" {
		t.Errorf("result = %q, want connected", result)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_AllFail(t *testing.T) {
	errRefused := errors.New("connection refused")
	var attempts int

	_, err := Retry(context.Background(), quickRetry(3), func() (int, error) {
		attempts++
		return 0, errRefused
	})

	if !errors.Is(err, errRefused) {
		t.Errorf("err = %v, want wrapped errRefused", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

var errNonRetryable = errors.New("non-retryable error")

func TestRetry_NonRetryable(t *testing.T) {
	cfg := quickRetry(5)
	cfg.RetryableErrors = func(err error) bool {
		return !errors.Is(err, errNonRetryable)
	}

	var attempts int
	_, err := Retry(context.Background(), cfg, func() (int, error) {
		attempts++
		return 0, errNonRetryable
	})

	if !errors.Is(err, errNonRetryable) {
		t.Errorf("err = %v, want wrapped errNonRetryable", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-retryable)", attempts)
	}
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	var attempts int
	_, _ = Retry(context.Background(), RetryConfig{}, func() (int, error) {
		attempts++
		return 0, errors.New("fail")
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxAttempts:       10,
		InitialDelay:      100 * time.Millisecond,
		BackoffMultiplier: 1.0,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, cfg, func() (int, error) {
		return 0, errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
