package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, db, base.DB(nil))
}

func TestBaseBound(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	assert.Same(t, db, base.Bound(nil).DB(nil))

	tx := db.Begin()
	defer tx.Rollback()
	assert.Same(t, tx, base.Bound(tx).DB(nil))
}

func TestCountAndFind(t *testing.T) {
	db := dbtest.Open(t, &models.Supplier{})
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, db.Create(&models.Supplier{Name: name}).Error)
	}

	var rows []models.Supplier
	params := pagination.PageParams{Page: 2, Limit: 2}
	total, err := CountAndFind(db.Model(&models.Supplier{}), params, "name ASC", &rows)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].Name)
	assert.Equal(t, "d", rows[1].Name)

	rows = nil
	total, err = CountAndFind(db.Model(&models.Supplier{}).Where("name = ?", "zzz"), params, "", &rows)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}
