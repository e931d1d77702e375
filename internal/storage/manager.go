// Package storage is the on-device relational store for expenses and their
// reference data. A Manager owns the single connection.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
)

// DefaultDatabaseName is the file name used when none is configured.
const DefaultDatabaseName = "ExpenseTracker.db"

type Manager struct {
	mu      sync.RWMutex
	driver  Driver
	name    string
	db      *sql.DB
	logger  *log.Logger
	metrics metrics.Recorder
	now     func() time.Time
	newID   func() string
}

type Option func(*Manager)

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent(log.ComponentStorage) }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides how new ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager returns an unopened manager for the named database.
func NewManager(driver Driver, name string, opts ...Option) *Manager {
	if name == "" {
		name = DefaultDatabaseName
	}
	m := &Manager{
		driver:  driver,
		name:    name,
		logger:  log.Discard().WithComponent(log.ComponentStorage),
		metrics: metrics.Nop{},
		now:     time.Now,
		newID:   core.GenerateID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the database name passed to the driver.
func (m *Manager) Name() string {
	return m.name
}

// Initialize opens the connection if needed and creates the schema.
// Table creation errors are fatal; index creation errors are logged and ignored.
func (m *Manager) Initialize(ctx context.Context) (err error) {
	defer m.track(ctx, "initialize", time.Now(), &err)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		db, err := m.driver.Open(ctx, m.name)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		m.db = db
	}

	for _, stmt := range tableStatements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	m.logger.DebugContext(ctx, "Tables created", log.FieldDatabase, m.name, log.FieldResultCount, len(tableStatements))

	for _, stmt := range indexStatements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			m.logger.WarnContext(ctx, "Index creation failed", log.FieldError, err, "statement", stmt)
		}
	}

	if seeder, ok := m.driver.(Seeder); ok {
		if err := seeder.Seed(ctx, m.name); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}
	return nil
}

// ResetDatabase closes the connection, deletes the database and initializes a fresh one.
func (m *Manager) ResetDatabase(ctx context.Context) error {
	m.mu.Lock()
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.logger.WarnContext(ctx, "Close before reset failed", log.FieldError, err)
		}
		m.db = nil
	}
	err := m.driver.Remove(ctx, m.name)
	m.mu.Unlock()
	if err != nil {
		m.metrics.ObserveOperation("reset_database", metrics.StatusError, 0)
		return fmt.Errorf("delete database: %w", err)
	}

	m.logger.WarnContext(ctx, "Database deleted", log.FieldDatabase, m.name)
	return m.Initialize(ctx)
}

// Close releases the connection. Calling it more than once is fine.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *Manager) conn() (*sql.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, ErrNotInitialized
	}
	return m.db, nil
}

func (m *Manager) track(ctx context.Context, op string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	status := metrics.StatusSuccess
	if errp != nil && *errp != nil {
		status = metrics.StatusError
		m.logger.DebugContext(ctx, "Storage operation failed",
			log.FieldOperation, op,
			log.FieldError, *errp,
			log.FieldDuration, elapsed.Milliseconds())
	}
	m.metrics.ObserveOperation(op, status, elapsed)
}

// withTx runs fn in a transaction, rolling back on error.
func (m *Manager) withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			m.logger.WarnContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return t, nil
}

func validDate(t time.Time) bool {
	return !t.IsZero() && t.UTC().Year() >= 1 && t.UTC().Year() <= 9999
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// likePattern wraps q for a substring LIKE with '\' as the escape character.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}
