package lock_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"schooldesk/internal/lock"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ lock.Locker = (*lock.Local)(nil)
	_ lock.Locker = (*lock.Redis)(nil)
)

func TestLocal_TimesOutWhileHeld(t *testing.T) {
	l := lock.NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, lock.ErrTimeout)

	release()
	release() // second call is a no-op

	release, err = l.Acquire(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	release()
}

func TestWith_ReleasesOnError(t *testing.T) {
	l := lock.NewLocal()
	ctx := context.Background()
	boom := errors.New("boom")

	err := lock.With(ctx, l, time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = lock.With(ctx, l, 20*time.Millisecond, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWith_ReleasesOnPanic(t *testing.T) {
	l := lock.NewLocal()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = lock.With(ctx, l, time.Second, func(context.Context) error { panic("boom") })
	})

	err := lock.With(ctx, l, 20*time.Millisecond, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestLocal_SerialisesWriters(t *testing.T) {
	l := lock.NewLocal()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lock.With(ctx, l, 5*time.Second, func(context.Context) error {
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}

func TestObserved_ReportsWait(t *testing.T) {
	var got []error
	l := lock.Observed(lock.NewLocal(), func(_ time.Duration, err error) { got = append(got, err) })

	release, err := l.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, lock.ErrTimeout)

	require.Len(t, got, 2)
	assert.NoError(t, got[0])
	assert.ErrorIs(t, got[1], lock.ErrTimeout)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	key := "schooldesk:test:lock"
	require.NoError(t, client.Del(ctx, key).Err())

	l := lock.NewRedis(client, key, 5*time.Second)
	release, err := l.Acquire(ctx, time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, 100*time.Millisecond)
	assert.ErrorIs(t, err, lock.ErrTimeout)

	release()
	release, err = l.Acquire(ctx, time.Second)
	require.NoError(t, err)
	release()
}
