package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// CounterStore counts hits per scope inside a window. The redis client and
// LocalCounter both satisfy it.
type CounterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ThrottlePolicy caps credential attempts per client IP and per email
// address inside Window. A zero limit disables that dimension.
type ThrottlePolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

type throttleRule struct {
	dimension string
	limit     int
	key       func(r *http.Request, body []byte) string
}

func (p ThrottlePolicy) rules() []throttleRule {
	var rules []throttleRule
	if p.PerIP > 0 {
		rules = append(rules, throttleRule{dimension: "ip", limit: p.PerIP, key: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		}})
	}
	if p.PerEmail > 0 {
		rules = append(rules, throttleRule{dimension: "email", limit: p.PerEmail, key: func(_ *http.Request, body []byte) string {
			return emailDigest(body)
		}})
	}
	return rules
}

func (p ThrottlePolicy) scope(dimension, key string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return name + ":" + dimension + ":" + key
}

// Throttle rejects requests over any rule of policy with 429 and a
// Retry-After header. Store failures surface as 503.
func Throttle(policy ThrottlePolicy, store CounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := policy.rules()
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Window <= 0 || len(rules) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.PerEmail > 0 && r.Body != nil {
				raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				body = raw
				r.Body = io.NopCloser(bytes.NewReader(raw))
			}

			for _, rule := range rules {
				key := rule.key(r, body)
				if key == "" {
					continue
				}
				allowed, hits, err := store.FixedWindowAllow(ctx, policy.scope(rule.dimension, key), int64(rule.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.Name,
							"dimension": rule.dimension,
							"key":       key,
							"hits":      hits,
							"limit":     rule.limit,
						}), "throttle.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// emailDigest hashes the lowercased email of a login body so addresses never
// reach the counter keys or logs.
func emailDigest(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:16])
}
