package sqlite

import (
	"errors"

	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations applies any pending database migrations from the embedded
// migration files.
func (m *Store) ApplyMigrations() error {
	instance, err := m.migrator()
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// RollbackMigrations reverts the last steps migrations.
func (m *Store) RollbackMigrations(steps int) error {
	instance, err := m.migrator()
	if err != nil {
		return err
	}

	err = instance.Steps(-steps)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MigrationVersion reports the current schema version. A fresh database
// reports version 0.
func (m *Store) MigrationVersion() (uint, bool, error) {
	instance, err := m.migrator()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Store) migrator() (*migrate.Migrate, error) {
	// 1. SQLite database driver over the existing handle
	driver, err := sqlite.WithInstance(m.db, &sqlite.Config{})
	if err != nil {
		return nil, err
	}

	// 2. Embedded filesystem source
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, err
	}

	// 3. Bind them together
	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}
