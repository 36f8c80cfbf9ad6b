package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd(logg *logger.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "tradedeskctl",
		Short: "Operator tooling for the TradeDesk backend",
		Long: `tradedeskctl runs one-off operations against a TradeDesk deployment:
seeding the first admin, applying migrations, replaying dead-lettered events
and checking unit conversions.

Commands that touch the database read the same TRADEDESK_* environment as the
API server, including a local .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newConvertCmd(),
		newSeedAdminCmd(logg),
		newMigrateCmd(logg),
		newOutboxCmd(logg),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tradedeskctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// runtime is the config, logger and database a command works against.
type runtime struct {
	cfg  *config.Config
	logg *logger.Logger
	db   *db.Client
}

func (r *runtime) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func loadConfig(base *logger.Logger) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, base, fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "tradedeskctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})
	return cfg, logg, nil
}

func openRuntime(ctx context.Context, base *logger.Logger) (*runtime, error) {
	cfg, logg, err := loadConfig(base)
	if err != nil {
		return nil, err
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &runtime{cfg: cfg, logg: logg, db: client}, nil
}
