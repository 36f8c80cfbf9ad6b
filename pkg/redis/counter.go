package redis

import (
	"context"
	"time"
)

const scanBatch = 100

// FixedWindowAllow counts one hit for scope and reports whether the count is
// within limit for the current window. The window starts at the first hit. A
// counter left without a TTL, e.g. after a crash between INCR and EXPIRE, is
// given one on the next hit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	key := c.RateLimitKey(scope)
	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if window > 0 {
		needsTTL := count == 1
		if !needsTTL {
			ttl, err := c.store.TTL(ctx, key).Result()
			if err != nil {
				return false, count, err
			}
			needsTTL = ttl < 0
		}
		if needsTTL {
			if err := c.store.Expire(ctx, key, window).Err(); err != nil {
				return false, count, err
			}
		}
	}
	return count <= limit, count, nil
}

// DeletePattern removes every key under the prefix matching the glob. Meant
// for small cache families.
func (c *Client) DeletePattern(ctx context.Context, pattern string) error {
	if err := c.ready(); err != nil {
		return err
	}
	match := c.keys.key(pattern)
	var cursor uint64
	for {
		keys, next, err := c.store.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return err
		}
		if err := c.Del(ctx, keys...); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
