package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore/entities"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audiophile.db")
	mgr, err := Open(&conf.OutputSettings{SQLite: conf.SQLiteSettings{Enabled: true, Path: path}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	assert.Equal(t, "sqlite", mgr.Dialect())
	assert.Equal(t, path, mgr.Path())
	assert.FileExists(t, path)

	assert.True(t, mgr.DB().Migrator().HasTable(&entities.File{}))
	assert.True(t, mgr.DB().Migrator().HasTable(&entities.Prediction{}))
	assert.True(t, mgr.DB().Migrator().HasIndex(&entities.File{}, "idx_file_identity"))

	// Initialize is idempotent
	require.NoError(t, mgr.Initialize())
}

func TestOpenWithoutOutput(t *testing.T) {
	_, err := Open(&conf.OutputSettings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database output enabled")
}

func TestDSN(t *testing.T) {
	my := &MySQLConfig{Host: "db", Port: "3306", Username: "u", Password: "p", Database: "audio"}
	assert.Equal(t, "u:p@tcp(db:3306)/audio?charset=utf8mb4&parseTime=True&loc=Local", my.DSN())

	pg := &PostgresConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "audio"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=audio sslmode=disable", pg.DSN())

	pg.SSLMode = "require"
	assert.Contains(t, pg.DSN(), "sslmode=require")
}
