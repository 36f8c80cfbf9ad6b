package dashboard

import (
	"context"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

const (
	cacheScope = "dashboard"
	cacheTTL   = 2 * time.Minute
)

// Invalidator drops cached dashboard figures after a write commits.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// CacheStore is the redis surface the dashboard cache needs.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
	DeletePattern(ctx context.Context, pattern string) error
}

// Cache stores the rendered summary in redis.
type Cache struct {
	store CacheStore
	logg  *logger.Logger
}

func NewCache(store CacheStore, logg *logger.Logger) *Cache {
	return &Cache{store: store, logg: logg}
}

func (c *Cache) key() string {
	return c.store.CacheKey(cacheScope, "summary")
}

// Invalidate implements Invalidator. Failures are logged; the entry still
// expires after cacheTTL.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.DeletePattern(ctx, "cache:"+cacheScope+":*"); err != nil {
		c.warn(ctx, "dashboard cache invalidation failed", err)
	}
}

// Invalidate is a nil-safe helper for services holding an optional
// Invalidator.
func Invalidate(ctx context.Context, inv Invalidator) {
	if inv == nil {
		return
	}
	inv.Invalidate(ctx)
}
