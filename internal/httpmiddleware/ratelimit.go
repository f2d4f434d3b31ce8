package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const sweepEvery = 1024

// RateLimiter is a per-client token bucket kept in process memory.
// TODO: move bucket state to Redis once the API runs with more than one replica.
type RateLimiter struct {
	burst  float64
	perSec float64
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   int
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows perMinute requests per client with bursts up to
// burst. A perMinute of zero or less disables limiting.
func NewRateLimiter(burst, perMinute int) *RateLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		burst:   float64(burst),
		perSec:  float64(perMinute) / 60,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Middleware rejects over-limit clients with 429 and the error envelope.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.perSec <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if wait, ok := l.take(key); !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "too many requests, try again shortly",
			})
			return
		}
		c.Next()
	}
}

// take spends one token for key. When none is left it reports how long
// until the next one.
func (l *RateLimiter) take(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.seen).Seconds()*l.perSec)
	b.seen = now

	if b.tokens < 1 {
		return time.Duration((1 - b.tokens) / l.perSec * float64(time.Second)), false
	}
	b.tokens--
	return 0, true
}

// sweep drops buckets that have refilled completely; a fresh bucket is
// equivalent.
func (l *RateLimiter) sweep(now time.Time) {
	full := time.Duration(l.burst / l.perSec * float64(time.Second))
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= full {
			delete(l.buckets, k)
		}
	}
}
