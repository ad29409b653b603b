package bungie

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// throttle bounds both the number of in-flight requests and the minimum
// spacing between request starts, so the client stays inside the API's
// throttle hints under a concurrent worker pool.
type throttle struct {
	sem *semaphore.Weighted

	mu          sync.Mutex
	next        time.Time
	minInterval time.Duration
}

func newThrottle(maxConcurrent int64, minInterval time.Duration) *throttle {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &throttle{
		sem:         semaphore.NewWeighted(maxConcurrent),
		minInterval: minInterval,
	}
}

// acquire blocks until a request slot is free and the spacing interval has
// elapsed, or the context is done.
func (t *throttle) acquire(ctx context.Context) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	if t.minInterval <= 0 {
		return nil
	}

	t.mu.Lock()
	now := time.Now()
	wait := t.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	t.next = now.Add(wait + t.minInterval)
	t.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		t.sem.Release(1)
		return ctx.Err()
	}
}

func (t *throttle) release() {
	t.sem.Release(1)
}
