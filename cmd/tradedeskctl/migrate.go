package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/migrate"
)

func newMigrateCmd(base *logger.Logger) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage goose schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "migrations directory for create and validate")

	for _, name := range []string{"up", "down", "status"} {
		command := name
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: "Run goose " + command,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return withSQL(c, base, func(ctx context.Context, sqlDB *sql.DB) error {
					return migrate.Run(ctx, sqlDB, command)
				})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to an exact version",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withSQL(c, base, func(ctx context.Context, sqlDB *sql.DB) error {
				return migrate.MigrateToVersion(ctx, sqlDB, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "created migration:", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check migration files for goose annotations and version clashes",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(dir); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "migration validation passed")
			return nil
		},
	})

	return cmd
}

func withSQL(c *cobra.Command, base *logger.Logger, fn func(ctx context.Context, sqlDB *sql.DB) error) error {
	ctx := c.Context()
	rt, err := openRuntime(ctx, base)
	if err != nil {
		return err
	}
	defer rt.Close()

	sqlDB, err := rt.db.SQL()
	if err != nil {
		return err
	}
	logCtx := rt.logg.WithFields(ctx, map[string]any{"env": rt.cfg.App.Env, "cmd": c.CommandPath()})
	rt.logg.Info(logCtx, "migrate ready")
	return fn(ctx, sqlDB)
}
