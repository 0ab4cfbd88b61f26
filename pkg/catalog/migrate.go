package catalog

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/catalog/migrations"
)

// runMigrations applies pending schema migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("catalog migration failed: %w", err)
	}
	if err == migrate.ErrNoChange {
		logger.Debug("catalog schema up to date")
	} else {
		logger.Info("catalog migrations applied")
	}

	return nil
}

// MigrationVersion returns the current schema version of the catalog at
// path. Returns (0, false, nil) when no migration has been applied yet.
func MigrationVersion(path string) (uint, bool, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return 0, false, fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer func() { _ = db.Close() }()

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, err
	}
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	return version, dirty, nil
}

// Migrate opens the catalog at path and applies pending migrations. Used by
// the migrate command; Open does the same implicitly at startup.
func Migrate(path string) error {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping catalog database: %w", err)
	}

	return runMigrations(db)
}
