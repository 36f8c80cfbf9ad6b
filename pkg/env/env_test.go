package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	assert.Equal(t, "console", Get("LOG_FORMAT", "json"))

	t.Setenv("TRADEDESK_LOG_FORMAT", " json ")
	assert.Equal(t, "json", Get("LOG_FORMAT", "console"))
}

func TestGetFallback(t *testing.T) {
	t.Setenv("TRADEDESK_UNSET_KEY", "")
	assert.Equal(t, "x", Get("UNSET_KEY", "x"))
}
