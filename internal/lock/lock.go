// Package lock serialises read-modify-write sequences against the row store.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the lock could not be taken within the wait.
var ErrTimeout = errors.New("could not acquire lock, the store is busy; try again")

// Locker hands out an exclusive lock. The returned release func must be
// called once.
type Locker interface {
	Acquire(ctx context.Context, wait time.Duration) (func(), error)
}

// Observer receives the time spent waiting for each acquisition.
type Observer func(wait time.Duration, err error)

// With runs fn while holding l and releases on every exit path, including
// panics.
func With(ctx context.Context, l Locker, wait time.Duration, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, wait)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Observed wraps a Locker and reports wait durations.
func Observed(l Locker, obs Observer) Locker {
	return observed{inner: l, obs: obs}
}

type observed struct {
	inner Locker
	obs   Observer
}

func (o observed) Acquire(ctx context.Context, wait time.Duration) (func(), error) {
	start := time.Now()
	release, err := o.inner.Acquire(ctx, wait)
	o.obs(time.Since(start), err)
	return release, err
}

func timeoutError(wait time.Duration) error {
	return fmt.Errorf("%w (waited %s)", ErrTimeout, wait)
}
