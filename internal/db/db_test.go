package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigratesFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "appraise.db")

	conn, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	v, err := CurrentVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), v)

	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='agenda_entries'").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appraise.db")
	conn, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	applied, err := RunMigrations(conn)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestGetDB_UsesConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	Configure(path)
	t.Cleanup(func() {
		Close()
		Configure("")
	})

	first, err := GetDB()
	require.NoError(t, err)
	second, err := GetDB()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.FileExists(t, path)
}
