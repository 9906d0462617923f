package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/Kerhoff/ShopListBot/internal/repository/sqlstore"
)

//go:embed migrations
var migrationsFS embed.FS

// Database holds database connection and configuration
type Database struct {
	*sql.DB
	Dialect sqlstore.Dialect
	logger  *logrus.Logger
}

// NewDatabase opens a connection for the given driver ("postgres" or
// "sqlite"). SQLite paths get their parent directory created.
func NewDatabase(driver, databaseURL string, logger *logrus.Logger) (*Database, error) {
	dialect, err := sqlstore.ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	if dialect == sqlstore.SQLite {
		if dir := filepath.Dir(databaseURL); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(string(dialect), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if dialect == sqlstore.SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithField("driver", dialect).Info("Database connection established successfully")

	return &Database{
		DB:      db,
		Dialect: dialect,
		logger:  logger,
	}, nil
}

// Migrate runs the embedded migrations for the connection's dialect
func (d *Database) Migrate() error {
	var (
		driver database.Driver
		err    error
	)
	switch d.Dialect {
	case sqlstore.Postgres:
		driver, err = postgres.WithInstance(d.DB, &postgres.Config{})
	case sqlstore.SQLite:
		driver, err = sqlite.WithInstance(d.DB, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+string(d.Dialect))
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(d.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
