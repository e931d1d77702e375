package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Driver opens and deletes the physical database by name.
type Driver interface {
	Open(ctx context.Context, name string) (*sql.DB, error)
	Remove(ctx context.Context, name string) error
}

// Seeder is implemented by drivers that can load reference data after the
// schema exists.
type Seeder interface {
	Seed(ctx context.Context, name string) error
}

// SQLiteDriver stores each database as a file under Dir.
type SQLiteDriver struct {
	Dir string
}

func NewSQLiteDriver(dir string) *SQLiteDriver {
	return &SQLiteDriver{Dir: dir}
}

// Path returns the file backing the named database.
func (d *SQLiteDriver) Path(name string) string {
	return filepath.Join(d.Dir, name)
}

func (d *SQLiteDriver) dsn(name string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return d.Path(name) + "?" + q.Encode()
}

func (d *SQLiteDriver) Open(ctx context.Context, name string) (*sql.DB, error) {
	if d.Dir != "" {
		if err := os.MkdirAll(d.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", d.dsn(name))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: pragmas apply everywhere and writes are serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (d *SQLiteDriver) Remove(_ context.Context, name string) error {
	base := d.Path(name)
	for _, p := range []string{base, base + "-wal", base + "-shm", base + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
