package redis

import "strings"

const defaultPrefix = "td"

// Keyspace builds colon separated keys under a fixed prefix. The zero value
// uses "td".
type Keyspace string

func (k Keyspace) key(parts ...string) string {
	prefix := strings.TrimSpace(string(k))
	if prefix == "" {
		prefix = defaultPrefix
	}
	out := make([]string, 1, len(parts)+1)
	out[0] = prefix
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.keys.key("rate_limit", scope)
}

// CacheKey namespaces cached read models, e.g. CacheKey("dashboard", "summary").
func (c *Client) CacheKey(parts ...string) string {
	return c.keys.key(append([]string{"cache"}, parts...)...)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return c.keys.key("session", "access", accessID)
}
