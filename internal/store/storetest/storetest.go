// Package storetest opens throwaway stores for tests in other packages.
package storetest

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated Store backed by a private in-memory SQLite
// database and an in-memory BadgerDB. Both are closed when the test ends.
func New(t testing.TB) *store.Store {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	kv, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)

	s, err := store.NewWithDB(db, kv)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}
