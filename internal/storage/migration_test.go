package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_Versioning(t *testing.T) {
	db := newTestDB(t)

	status, err := GetMigrationStatus(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)

	// Running migrations again should be idempotent
	require.NoError(t, Migrate(db))
	again, err := GetMigrationStatus(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, status, again)
}

func TestMigrate_TableCreation(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"tokens", "authorizations"} {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (
			SELECT 1 FROM sqlite_master WHERE type='table' AND name=?
		)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "Table %s should exist", table)
	}
}

func TestMigrate_NilDB(t *testing.T) {
	assert.ErrorIs(t, Migrate((*sql.DB)(nil)), ErrInvalidInput)
}

// Test: Migrate applies the embedded migrations to a file database and leaves it open
func TestMigrate_FileDatabase(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, db.Ping(), "the caller's connection stays usable")

	status, err := GetMigrationStatus(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
}
