package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

func TestAutoMigrateEnabled(t *testing.T) {
	cases := []struct {
		name string
		env  string
		flag bool
		want bool
	}{
		{"dev with flag", config.AppEnvDev, true, true},
		{"dev without flag", config.AppEnvDev, false, false},
		{"prod with flag", config.AppEnvProd, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.App.Env = tc.env
			cfg.FeatureFlags.AutoMigrate = tc.flag
			assert.Equal(t, tc.want, AutoMigrateEnabled(cfg))
		})
	}
	assert.False(t, AutoMigrateEnabled(nil))
}

func TestAutoMigrateSQLiteCreatesTables(t *testing.T) {
	conn := dbtest.Open(t)
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	cfg.DB.Driver = db.DriverSQLite
	cfg.FeatureFlags.AutoMigrate = true

	require.NoError(t, AutoMigrate(context.Background(), cfg, logger.Nop(), db.Wrap(conn)))

	for _, m := range []any{&models.Customer{}, &models.Sale{}, &models.OutboxEvent{}} {
		assert.True(t, conn.Migrator().HasTable(m))
	}
}

func TestAutoMigrateSkipsWhenDisabled(t *testing.T) {
	conn := dbtest.Open(t)
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	cfg.DB.Driver = db.DriverSQLite

	require.NoError(t, AutoMigrate(context.Background(), cfg, logger.Nop(), db.Wrap(conn)))
	assert.False(t, conn.Migrator().HasTable(&models.Customer{}))
}
