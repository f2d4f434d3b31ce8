package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every API process pointing at the same Redis.
// The key expires after ttl so a crashed holder cannot wedge the store.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedis builds a lock on key.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = "schooldesk:lock:store"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, key: key, ttl: ttl, poll: 50 * time.Millisecond}
}

// Acquire polls SET NX until it wins or wait elapses.
func (r *Redis) Acquire(ctx context.Context, wait time.Duration) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// The request context may already be done; release regardless.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(rctx, r.client, []string{r.key}, token).Err(); err != nil {
					slog.Warn("lock release failed", "key", r.key, "error", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, timeoutError(wait)
		}
		select {
		case <-time.After(r.poll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
