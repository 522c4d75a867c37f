package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deusflow/dailybrief/internal/news"
)

func TestThrottleSpacesEvents(t *testing.T) {
	th := NewThrottle(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx, news.KindFeed); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("expected three events to take at least two intervals, took %v", elapsed)
	}
}

func TestThrottleKindsIndependent(t *testing.T) {
	th := NewThrottle(time.Hour)
	ctx := context.Background()

	if err := th.Wait(ctx, news.KindFeed); err != nil {
		t.Fatalf("first feed wait: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- th.Wait(ctx, news.KindSearch) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("search wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("search kind should not be blocked by feed kind")
	}
}

func TestThrottleContextCancel(t *testing.T) {
	th := NewThrottle(time.Hour)
	if err := th.Wait(context.Background(), news.KindFeed); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := th.Wait(ctx, news.KindFeed); err == nil {
		t.Error("expected error when context ends before the next slot")
	}
}

func TestThrottleDisabled(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := th.Wait(context.Background(), news.KindFeed); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("disabled throttle should not wait")
	}
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	if err := b.Take("openai"); err != nil {
		t.Fatal(err)
	}
	if err := b.Take("gemini"); err != nil {
		t.Fatal(err)
	}
	if err := b.Take("openai"); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}

	stats := b.Stats()
	if stats["total_used"] != 2 || stats["denied"] != 1 || stats["openai_used"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 50; i++ {
		if err := b.Take("openai"); err != nil {
			t.Fatalf("unlimited budget refused call %d: %v", i, err)
		}
	}
	var nilBudget *Budget
	if err := nilBudget.Take("openai"); err != nil {
		t.Errorf("nil budget should allow calls, got %v", err)
	}
}
