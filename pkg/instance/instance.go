package instance

import (
	"fmt"
	"os"

	"github.com/angelmondragon/tradedesk-backend/pkg/env"
)

// GetID identifies the running process in logs. INSTANCE_ID wins; otherwise
// the hostname and pid are combined so replicas on one host stay distinct.
func GetID() string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "tradedesk"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
