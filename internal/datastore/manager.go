// Package datastore opens the relational store holding files and their
// prediction generations. SQLite, MySQL and PostgreSQL are supported
// through GORM; exactly one is enabled in the output settings.
package datastore

import (
	"fmt"
	"time"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore/entities"
	"github.com/tphakala/audiophile/internal/datastore/repository"
	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/logger"
	"gorm.io/gorm"
)

// Manager defines the lifecycle of a database backend.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location for display.
	Path() string
	// Close closes the database connection.
	Close() error
	// Dialect returns the GORM dialect name.
	Dialect() string
}

// Open creates the manager selected by the output settings, initializes
// its schema and returns it.
func Open(settings *conf.OutputSettings) (Manager, error) {
	var (
		mgr Manager
		err error
	)
	switch {
	case settings.SQLite.Enabled:
		mgr, err = NewSQLiteManager(Config{Path: settings.SQLite.Path})
	case settings.MySQL.Enabled:
		mgr, err = NewMySQLManager(&MySQLConfig{
			Host:     settings.MySQL.Host,
			Port:     settings.MySQL.Port,
			Username: settings.MySQL.Username,
			Password: settings.MySQL.Password,
			Database: settings.MySQL.Database,
		})
	case settings.Postgres.Enabled:
		mgr, err = NewPostgresManager(&PostgresConfig{
			Host:     settings.Postgres.Host,
			Port:     settings.Postgres.Port,
			Username: settings.Postgres.Username,
			Password: settings.Postgres.Password,
			Database: settings.Postgres.Database,
			SSLMode:  settings.Postgres.SSLMode,
		})
	default:
		return nil, errors.Newf("no database output enabled").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	if err := mgr.Initialize(); err != nil {
		_ = mgr.Close()
		return nil, err
	}

	GetLogger().Info("database ready",
		logger.String("dialect", mgr.Dialect()),
		logger.String("location", mgr.Path()))
	return mgr, nil
}

// NewRepository returns the repository over an initialized manager.
func NewRepository(mgr Manager) repository.Repository {
	return repository.New(mgr.DB())
}

// migrate runs GORM auto-migrations for all entities.
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.File{}, &entities.Prediction{}); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}
	return nil
}

// configurePool applies connection pool limits for networked databases.
func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

func openError(dialect string, err error) error {
	return errors.New(fmt.Errorf("failed to open %s database: %w", dialect, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("dialect", dialect).
		Build()
}
