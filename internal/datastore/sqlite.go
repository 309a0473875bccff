package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds SQLite configuration.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string
}

// SQLiteManager handles a file-backed SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens the SQLite database at cfg.Path.
func NewSQLiteManager(cfg Config) (*SQLiteManager, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, openError("sqlite", err)
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger(),
	})
	if err != nil {
		return nil, openError("sqlite", err)
	}

	// A single writer avoids SQLITE_BUSY between concurrent commit transactions.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, openError("sqlite", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{db: db, dbPath: cfg.Path}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize() error {
	return migrate(m.db)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}

// Dialect returns "sqlite".
func (m *SQLiteManager) Dialect() string {
	return "sqlite"
}
