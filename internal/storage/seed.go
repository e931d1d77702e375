package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var seedFS embed.FS

const seedMigrationsTable = "seed_migrations"

// Seed loads the default currencies and categories. It runs on its own
// connection because closing the migrate instance closes the database.
func (d *SQLiteDriver) Seed(_ context.Context, name string) error {
	seedDB, err := sql.Open("sqlite", d.dsn(name))
	if err != nil {
		return fmt.Errorf("open seed database: %w", err)
	}
	defer seedDB.Close()

	driver, err := sqlite.WithInstance(seedDB, &sqlite.Config{MigrationsTable: seedMigrationsTable})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(seedFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run seed migrations: %w", err)
	}
	return nil
}
