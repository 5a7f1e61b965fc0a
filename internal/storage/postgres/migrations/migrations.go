// Package migrations applies the embedded PostgreSQL schema.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Migrator runs schema migrations against a database URL
type Migrator struct {
	migrate *migrate.Migrate
	logger  *slog.Logger
}

// New creates a Migrator for the postgres:// URL
func New(databaseURL string, logger *slog.Logger) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		logger:  logger.With(slog.String("component", "migrations")),
	}, nil
}

// Up applies every pending migration. A dirty database is forced back to its
// recorded version first.
func (m *Migrator) Up() error {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if dirty {
		m.logger.Warn("schema is dirty, forcing version", slog.Any("version", version))
		if err := m.migrate.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force schema version: %w", err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Debug("schema up to date")
			return nil
		}
		return fmt.Errorf("failed to migrate: %w", err)
	}

	newVersion, _, _ := m.migrate.Version()
	m.logger.Info("schema migrated", slog.Any("version", newVersion))
	return nil
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return nil
}

// Version returns the current schema version
func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Close releases the migrator's source and database connections
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
