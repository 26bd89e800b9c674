package embedding

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two embedding calls.
const DefaultInterval = 300 * time.Millisecond

// Throttle admits one embedding call at a time and spaces calls at least interval apart.
type Throttle struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewThrottle creates a throttle. A non-positive interval disables the spacing but
// keeps the single permit.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{
		sem:     semaphore.NewWeighted(1),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Do runs fn while holding the permit, after waiting for the rate limiter.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.sem.Release(1)

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
