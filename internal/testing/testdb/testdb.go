// Package testdb provides an in-memory SQLite store for package tests.
package testdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/iliyamo/pms-backend/internal/database"
)

// New returns a fresh in-memory database with the schema created. It is
// closed when the test ends.
func New(t testing.TB) *bun.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.CreateSchema(context.Background(), db))
	return db
}
