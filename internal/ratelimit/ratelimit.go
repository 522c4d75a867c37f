package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/news"
)

var ErrBudgetExhausted = errors.New("generation budget exhausted")

// Throttle spaces out per-candidate work with one limiter per source kind.
// The first call for a kind passes immediately; later calls wait until the
// configured interval has elapsed since the previous one.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[news.Kind]*rate.Limiter
}

// NewThrottle returns a Throttle that allows one event per interval and
// kind. A non-positive interval disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		limiters: make(map[news.Kind]*rate.Limiter),
	}
}

// Wait blocks until the kind's limiter admits another event or ctx ends.
func (t *Throttle) Wait(ctx context.Context, kind news.Kind) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}
	return t.limiter(kind).Wait(ctx)
}

func (t *Throttle) limiter(kind news.Kind) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[kind]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[kind] = l
	}
	return l
}

// Budget caps generator calls for one run, counted per backend.
type Budget struct {
	mu     sync.Mutex
	max    int
	total  int
	denied int
	used   map[string]int
}

// NewBudget returns a Budget allowing max calls in total; max <= 0 means
// unlimited.
func NewBudget(max int) *Budget {
	return &Budget{max: max, used: make(map[string]int)}
}

// Take reserves one call for backend, or returns ErrBudgetExhausted. A nil
// Budget never refuses.
func (b *Budget) Take(backend string) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.total >= b.max {
		b.denied++
		if b.denied == 1 {
			logger.Warn("Generation budget reached", "used", b.total, "limit", b.max)
		}
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, b.total, b.max)
	}
	b.total++
	b.used[backend]++
	return nil
}

// Stats returns current usage for the end-of-run log. A nil Budget reports
// nothing.
func (b *Budget) Stats() map[string]interface{} {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.max,
		"denied":      b.denied,
	}
	for backend, n := range b.used {
		stats[backend+"_used"] = n
	}
	return stats
}
