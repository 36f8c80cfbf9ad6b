package env

import (
	"os"
	"strings"
)

// Prefix namespaces every setting the services read.
const Prefix = "TRADEDESK_"

// Get returns TRADEDESK_<key> when set, then the bare key, then fallback.
// Empty values count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
