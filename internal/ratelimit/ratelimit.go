// Package ratelimit bounds outbound action rates against externally imposed
// quotas. Each quota gets its own token bucket; pools are never shared.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket with capacity C refilled at R tokens/second.
// Refill is computed lazily from elapsed time at each access; there is no
// background timer.
type Limiter struct {
	name     string
	capacity int
	bucket   *rate.Limiter
}

// New creates a limiter. Capacity and refill must be positive.
func New(name string, capacity int, refillPerSecond float64) (*Limiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("limiter %s: capacity must be positive, got %d", name, capacity)
	}
	if refillPerSecond <= 0 {
		return nil, fmt.Errorf("limiter %s: refill rate must be positive, got %f", name, refillPerSecond)
	}
	return &Limiter{
		name:     name,
		capacity: capacity,
		bucket:   rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
	}, nil
}

// Name returns the quota this limiter guards.
func (l *Limiter) Name() string { return l.name }

// Acquire debits cost tokens, suspending the caller for exactly the time
// the deficit needs to refill. Quota exhaustion is not an error: the only
// error cases are context cancellation and a non-positive cost. Costs above
// capacity are debited in capacity-sized chunks so they still eventually
// succeed.
func (l *Limiter) Acquire(ctx context.Context, cost int) error {
	if cost <= 0 {
		return fmt.Errorf("limiter %s: cost must be positive, got %d", l.name, cost)
	}
	for cost > 0 {
		n := cost
		if n > l.capacity {
			n = l.capacity
		}
		if err := l.bucket.WaitN(ctx, n); err != nil {
			return fmt.Errorf("limiter %s: %w", l.name, err)
		}
		cost -= n
	}
	return nil
}

// TryAcquire debits cost tokens only if they are available now.
func (l *Limiter) TryAcquire(cost int) bool {
	if cost <= 0 || cost > l.capacity {
		return false
	}
	return l.bucket.AllowN(time.Now(), cost)
}
