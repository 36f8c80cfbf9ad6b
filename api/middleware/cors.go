package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
)

const corsMaxAgeSeconds = 300

// CORS applies the dashboard origin policy. Blank entries are ignored and an
// empty list falls back to the local dev frontend. A "*" entry allows any
// origin but then never sends credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:3000"}
	}
	wildcard := slices.Contains(allowed, "*")

	return cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-Requested-With",
			validators.TokenHeader, IdempotencyKeyHeader, responses.RequestIDHeader,
		},
		ExposedHeaders:   []string{validators.TokenHeader, responses.RequestIDHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           corsMaxAgeSeconds,
	}).Handler
}
