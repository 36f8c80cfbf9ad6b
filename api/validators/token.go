package validators

import (
	"net/http"
	"strings"
)

// TokenHeader carries the access token for clients that cannot set
// Authorization.
const TokenHeader = "X-TD-Token"

// AccessToken extracts the access token from the Authorization header,
// accepting an optional Bearer prefix, or from X-TD-Token.
func AccessToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := stripBearer(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

func stripBearer(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
