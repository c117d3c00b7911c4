package db

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	embeddedmigrations "github.com/solatis/fieldcheck/migrations"
)

// MigrationStatus reports the schema version of a database.
type MigrationStatus struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Pending reports whether migrations remain to be applied.
func (s MigrationStatus) Pending() bool {
	return s.Version < s.Latest
}

// MigrateUp applies all pending migrations. An up-to-date database is not an error.
func MigrateUp(dbURL string) error {
	m, err := newMigrate(dbURL)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts every applied migration.
func MigrateDown(dbURL string) error {
	m, err := newMigrate(dbURL)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

// MigrateStatus returns the applied and latest available versions.
func MigrateStatus(dbURL string) (MigrationStatus, error) {
	target, err := ParseURL(dbURL)
	if err != nil {
		return MigrationStatus{}, err
	}
	latest, err := latestVersion(target.Driver)
	if err != nil {
		return MigrationStatus{}, err
	}

	m, err := newMigrate(dbURL)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrate(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{Latest: latest}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return MigrationStatus{Version: version, Latest: latest, Dirty: dirty}, nil
}

func migrationSource(driver string) (source.Driver, error) {
	var fsys fs.FS
	var dir string
	switch driver {
	case DriverSQLite:
		fsys, dir = embeddedmigrations.SqliteMigrations, "sqlite"
	case DriverPostgres:
		fsys, dir = embeddedmigrations.PostgresMigrations, "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	return src, nil
}

// newMigrate opens a dedicated connection: closing a migrate instance closes
// its database handle, so it never shares the service pool.
func newMigrate(dbURL string) (*migrate.Migrate, error) {
	target, err := ParseURL(dbURL)
	if err != nil {
		return nil, err
	}
	src, err := migrationSource(target.Driver)
	if err != nil {
		return nil, err
	}

	migrateURL := target.URL
	if target.Driver == DriverSQLite {
		migrateURL = "sqlite3://" + target.DataSource
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	_, _ = m.Close()
}

func latestVersion(driver string) (uint, error) {
	src, err := migrationSource(driver)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no embedded migrations: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}
