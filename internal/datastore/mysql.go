package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN returns the go-sql-driver connection string.
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// MySQLManager handles a MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// NewMySQLManager connects to MySQL.
func NewMySQLManager(cfg *MySQLConfig) (*MySQLManager, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger(),
	})
	if err != nil {
		return nil, openError("mysql", err)
	}
	if err := configurePool(db); err != nil {
		return nil, openError("mysql", err)
	}

	return &MySQLManager{
		db:       db,
		location: fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database),
	}, nil
}

// Initialize creates the schema.
func (m *MySQLManager) Initialize() error {
	return migrate(m.db)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	return closeDB(m.db)
}

// Dialect returns "mysql".
func (m *MySQLManager) Dialect() string {
	return "mysql"
}
