package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithRetrySuccessAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}
	attempts := 0

	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Backoff: true}
	attempts := 0
	base := errors.New("persistent error")

	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		return base
	})
	if !errors.Is(err, base) {
		t.Fatalf("Expected wrapped base error, got: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("Expected 2 attempts, got %d", attempts)
	}
}

func TestWithRetryPermanentStopsImmediately(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, Delay: time.Millisecond}
	attempts := 0
	base := fmt.Errorf("unexpected status %d", 404)

	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		return Permanent(base)
	})
	if attempts != 1 {
		t.Fatalf("Expected 1 attempt for permanent error, got %d", attempts)
	}
	if err != base {
		t.Fatalf("Expected the unwrapped permanent error, got: %v", err)
	}
}

func TestWithRetryContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, Delay: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := WithRetry(ctx, cfg, func() error { return errors.New("retryable") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got: %v", err)
	}
	if time.Since(start) > 90*time.Millisecond {
		t.Fatalf("Expected quick abort, took %v", time.Since(start))
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if _, ok := isPermanent(fmt.Errorf("wrapped: %w", Permanent(errors.New("x")))); !ok {
		t.Error("isPermanent should see through wrapping")
	}
}

func TestHTTPStatusRetryable(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{200, false},
		{400, false},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			if got := HTTPStatusRetryable(tt.status); got != tt.expected {
				t.Errorf("HTTPStatusRetryable(%d) = %v, expected %v", tt.status, got, tt.expected)
			}
		})
	}
}
