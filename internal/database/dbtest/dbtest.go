// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"hangout/config"
	"hangout/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a fresh migrated SQLite database. A single connection keeps the
// in-memory database alive for the test's lifetime.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
