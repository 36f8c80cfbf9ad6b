package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxLocalScopes = 10_000

// LocalCounter is an in-process CounterStore for single replica deployments
// without redis. Each scope gets a token bucket refilling limit tokens per
// window.
type LocalCounter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	now     func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalCounter() *LocalCounter {
	return &LocalCounter{buckets: map[string]*localBucket{}, now: time.Now}
}

func (c *LocalCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if limit <= 0 || window <= 0 {
		return true, 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	b, ok := c.buckets[scope]
	if !ok {
		if len(c.buckets) >= maxLocalScopes {
			c.evict(now, window)
		}
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), int(limit))}
		c.buckets[scope] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	used := limit - int64(b.limiter.TokensAt(now))
	return allowed, used, nil
}

// evict drops buckets idle for longer than window; they would be full again.
// When every bucket is recent the least recently seen one goes instead.
func (c *LocalCounter) evict(now time.Time, window time.Duration) {
	var (
		oldest     string
		oldestSeen time.Time
	)
	before := len(c.buckets)
	for scope, b := range c.buckets {
		if now.Sub(b.lastSeen) > window {
			delete(c.buckets, scope)
			continue
		}
		if oldest == "" || b.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = scope, b.lastSeen
		}
	}
	if len(c.buckets) == before && oldest != "" {
		delete(c.buckets, oldest)
	}
}
