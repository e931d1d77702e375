package storage

import (
	"context"

	"expensetracker/internal/log"
)

const tableExistsQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`

// CheckDatabaseHealth reports whether every essential table exists and can be
// read. It never returns an error; failures are logged and reported as false.
func (m *Manager) CheckDatabaseHealth(ctx context.Context) bool {
	db, err := m.conn()
	if err != nil {
		return false
	}

	for _, table := range essentialTables {
		var name string
		if err := db.QueryRowContext(ctx, tableExistsQuery, table).Scan(&name); err != nil {
			m.logger.WarnContext(ctx, "Health check: table missing", log.FieldTable, table, log.FieldError, err)
			return false
		}
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			m.logger.WarnContext(ctx, "Health check: table unreadable", log.FieldTable, table, log.FieldError, err)
			return false
		}
	}
	return true
}
