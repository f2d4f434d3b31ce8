package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process lock backed by a one-slot channel, so waiting can
// be bounded and cancelled.
type Local struct {
	slot chan struct{}
}

// NewLocal creates an unlocked Local.
func NewLocal() *Local {
	return &Local{slot: make(chan struct{}, 1)}
}

// Acquire waits up to wait for the lock.
func (l *Local) Acquire(ctx context.Context, wait time.Duration) (func(), error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l.slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.slot }) }, nil
	case <-timer.C:
		return nil, timeoutError(wait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
