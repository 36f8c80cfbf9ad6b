package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// AutoMigrateEnabled reports whether startup should migrate: only in dev and
// only with TRADEDESK_AUTO_MIGRATE set.
func AutoMigrateEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// AutoMigrate brings the schema up to date on startup when enabled. Postgres
// runs the embedded goose files; sqlite has no SQL migrations and is migrated
// from the gorm models instead.
func AutoMigrate(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !AutoMigrateEnabled(cfg) {
		return nil
	}
	ctx = logg.WithField(ctx, "db_driver", cfg.DB.Driver)

	if cfg.DB.Driver == db.DriverSQLite {
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate sqlite: %w", err)
		}
		logg.Info(ctx, "sqlite schema migrated from models")
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := Run(ctx, sqlDB, "up"); err != nil {
		return err
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithField(ctx, "schema_version", version), "goose migrations applied")
	return nil
}
