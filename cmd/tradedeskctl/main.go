package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "tradedeskctl", Output: os.Stderr})
	_ = godotenv.Load()

	if err := newRootCmd(logg).Execute(); err != nil {
		logg.Error(context.Background(), "command failed", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
