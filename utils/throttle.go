package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Throttle sleeps a uniformly random duration in [Min, Max] between units of
// work.
type Throttle struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewThrottle swaps min and max when given in the wrong order.
func NewThrottle(min, max time.Duration) *Throttle {
	if max < min {
		min, max = max, min
	}
	return &Throttle{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next draws the next delay without sleeping.
func (t *Throttle) Next() time.Duration {
	if t.max <= t.min {
		return t.min
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.min + time.Duration(t.rng.Int63n(int64(t.max-t.min)+1))
}

// Wait sleeps for the next delay, returning early with ctx.Err() on
// cancellation.
func (t *Throttle) Wait(ctx context.Context) error {
	d := t.Next()
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
