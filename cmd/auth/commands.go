package main

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/tenantauth/internal/auth/app"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
)

type ServeCmd struct{}

func (c *ServeCmd) Run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

type MigrateCmd struct {
	Database string `help:"SQLite database file." env:"AUTH_DATABASE_FILE" default:"auth.db"`

	Up      MigrateUpCmd      `cmd:"" help:"Apply all pending migrations."`
	Down    MigrateDownCmd    `cmd:"" help:"Revert migrations."`
	Version MigrateVersionCmd `cmd:"" help:"Print the current schema version."`
}

type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run(m *MigrateCmd) error {
	return withStore(m.Database, func(db *sqlite.Store) error {
		if err := db.ApplyMigrations(); err != nil {
			return err
		}
		return printVersion(db)
	})
}

type MigrateDownCmd struct {
	Steps int `arg:"" optional:"" default:"1" help:"Number of migrations to revert."`
}

func (c *MigrateDownCmd) Run(m *MigrateCmd) error {
	if c.Steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}
	return withStore(m.Database, func(db *sqlite.Store) error {
		if err := db.RollbackMigrations(c.Steps); err != nil {
			return err
		}
		return printVersion(db)
	})
}

type MigrateVersionCmd struct{}

func (c *MigrateVersionCmd) Run(m *MigrateCmd) error {
	return withStore(m.Database, printVersion)
}

func withStore(path string, fn func(*sqlite.Store) error) error {
	db, err := app.OpenStore(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func printVersion(db *sqlite.Store) error {
	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Printf("schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Printf("schema version %d\n", version)
	return nil
}
