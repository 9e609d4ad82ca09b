package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pms-backend/internal/database"
	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/testing/testdb"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)

	require.NoError(t, database.Seed(ctx, db, database.SeedOptions{}))
	require.NoError(t, database.Seed(ctx, db, database.SeedOptions{}))

	roles, err := db.NewSelect().Model((*model.Role)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, roles)

	var admin model.User
	require.NoError(t, db.NewSelect().Model(&admin).
		Relation("Roles").
		Relation("UserDetails").
		Where("?TableAlias.user_name = ?", "admin").
		Scan(ctx))
	assert.True(t, admin.IsActive)
	assert.Equal(t, "admin", admin.Password)
	assert.Equal(t, []string{"Admin"}, admin.RoleNames())
	require.NotNil(t, admin.FirstDetail())
	assert.Equal(t, "admin@pms.com", admin.FirstDetail().Email)
}

func TestSeedReset(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)

	require.NoError(t, database.Seed(ctx, db, database.SeedOptions{}))
	require.NoError(t, database.Seed(ctx, db, database.SeedOptions{Reset: true}))

	users, err := db.NewSelect().Model((*model.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, users)

	works, err := db.NewSelect().Model((*model.Work)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, works)
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)

	_, err := db.NewInsert().Model(model.NewUserRole(99, 99)).Exec(ctx)
	assert.Error(t, err)
}
