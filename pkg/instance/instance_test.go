package instance

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDFromEnv(t *testing.T) {
	t.Setenv("TRADEDESK_INSTANCE_ID", "api-1")
	assert.Equal(t, "api-1", GetID())
}

func TestGetIDDefaultsToHostAndPid(t *testing.T) {
	t.Setenv("TRADEDESK_INSTANCE_ID", "")
	t.Setenv("INSTANCE_ID", "")
	id := GetID()
	_, pid, ok := strings.Cut(id[strings.LastIndex(id, "-"):], "-")
	assert.True(t, ok)
	_, err := strconv.Atoi(pid)
	assert.NoError(t, err)
}
