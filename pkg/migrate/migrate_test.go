package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embeddedNames, err := fs.Glob(embedded, "migrations/*.sql")
	require.NoError(t, err)
	diskNames, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, embeddedNames, len(diskNames))
	assert.NotEmpty(t, embeddedNames)
}

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "migration %s", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestSchemaConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_products": {
			"CREATE TABLE IF NOT EXISTS products",
			"CHECK (unit_category IN ('KG', 'BAG', 'TRAY'))",
			"CHECK (current_stock >= 0)",
			"DROP TABLE IF EXISTS products",
		},
		"create_purchases_and_lots": {
			"CREATE TABLE IF NOT EXISTS lots",
			"CHECK (pending_quantity >= 0)",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_lots_number",
			"FOREIGN KEY (purchase_id) REFERENCES purchases(id) ON DELETE CASCADE",
		},
		"create_sales": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_sales_bill_no",
			"CHECK (returned_quantity <= quantity)",
			"FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE",
		},
		"create_counters": {
			"INSERT INTO counters (name, value) VALUES ('bill', 0), ('lot', 0)",
		},
		"create_outbox": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"WHERE published_at IS NULL",
		},
	}
	for suffix, checks := range cases {
		t.Run(suffix, func(t *testing.T) {
			content := readMigration(t, suffix)
			for _, sub := range checks {
				assert.True(t, strings.Contains(content, sub), "missing %q", sub)
			}
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	nowFunc = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = time.Now })

	path, err := CreateSQLMigration(dir, "Add Customer Tags!")
	require.NoError(t, err)
	assert.Equal(t, "20260304050607_add_customer_tags.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)

	nowFunc = func() time.Time { return time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) }
	_, err = CreateSQLMigration(dir, "add customer-tags")
	assert.ErrorContains(t, err, "already exists")
}

func TestValidateDirRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260102000000_x.sql"), body, 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "duplicate migration name")
}

func TestValidateDirRequiresDownMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "+goose Down")
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}
