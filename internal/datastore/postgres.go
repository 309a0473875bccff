package datastore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the libpq keyword/value connection string.
func (c *PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
}

// PostgresManager handles a PostgreSQL database.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

// NewPostgresManager connects to PostgreSQL.
func NewPostgresManager(cfg *PostgresConfig) (*PostgresManager, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger(),
	})
	if err != nil {
		return nil, openError("postgres", err)
	}
	if err := configurePool(db); err != nil {
		return nil, openError("postgres", err)
	}

	return &PostgresManager{
		db:       db,
		location: fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database),
	}, nil
}

// Initialize creates the schema.
func (m *PostgresManager) Initialize() error {
	return migrate(m.db)
}

// DB returns the underlying GORM database.
func (m *PostgresManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *PostgresManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *PostgresManager) Close() error {
	return closeDB(m.db)
}

// Dialect returns "postgres".
func (m *PostgresManager) Dialect() string {
	return "postgres"
}
