package config

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Database wraps the registry's sql.DB handle. Every repository shares the
// one pool; its size comes from configuration so small deployments can run
// against a constrained Postgres.
type Database struct {
	*sql.DB
	logger *logrus.Logger
}

// NewDatabase opens the registry database and verifies the connection.
func NewDatabase(cfg *Config, logger *logrus.Logger) (*Database, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry database is unreachable: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"max_open": cfg.DBMaxOpenConns,
		"max_idle": cfg.DBMaxIdleConns,
	}).Info("Connected to registry database")

	return &Database{DB: db, logger: logger}, nil
}

// Migrate brings the registry schema up to date from the given directory.
func (d *Database) Migrate(migrationsPath string) error {
	driver, err := postgres.WithInstance(d.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			d.logger.Info("Registry schema already up to date")
			return nil
		}
		return fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	d.logger.Info("Registry schema migrated")
	return nil
}

// Close releases the shared pool.
func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
