package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"expensetracker/internal/core"
)

const (
	DefaultVendorSearchLimit  = 10
	DefaultPopularVendorLimit = 50
)

const (
	selectVendorQuery = `SELECT usage_count FROM vendors WHERE name = ?`
	bumpVendorQuery   = `UPDATE vendors SET usage_count = usage_count + 1 WHERE name = ?`
	insertVendorQuery = `INSERT INTO vendors (name, usage_count) VALUES (?, 1)
ON CONFLICT(name) DO UPDATE SET usage_count = usage_count + 1`
	searchVendorsQuery = `SELECT name, usage_count FROM vendors
WHERE name LIKE ? ESCAPE '\'
ORDER BY usage_count DESC, name
LIMIT ?`
	popularVendorsQuery = `SELECT name, usage_count FROM vendors
ORDER BY usage_count DESC, name
LIMIT ?`
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateOrUpdateVendor counts one more use of the exact vendor name,
// inserting it on first use.
func (m *Manager) CreateOrUpdateVendor(ctx context.Context, name string) (err error) {
	defer m.track(ctx, "upsert_vendor", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}
	return m.upsertVendor(ctx, db, name)
}

func (m *Manager) upsertVendor(ctx context.Context, q querier, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}

	var count int
	err := q.QueryRowContext(ctx, selectVendorQuery, name).Scan(&count)
	switch {
	case err == nil:
		_, err = q.ExecContext(ctx, bumpVendorQuery, name)
		return err
	case errors.Is(err, sql.ErrNoRows):
		// The conflict clause covers a concurrent insert of the same name.
		_, err = q.ExecContext(ctx, insertVendorQuery, name)
		return err
	default:
		return err
	}
}

// SearchVendors returns vendors whose name contains query, most used first.
func (m *Manager) SearchVendors(ctx context.Context, query string, limit int) (vendors []core.Vendor, err error) {
	defer m.track(ctx, "search_vendors", time.Now(), &err)

	if limit <= 0 {
		limit = DefaultVendorSearchLimit
	}
	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	return queryVendors(ctx, db, searchVendorsQuery, likePattern(query), limit)
}

// GetPopularVendors returns the most used vendors.
func (m *Manager) GetPopularVendors(ctx context.Context, limit int) (vendors []core.Vendor, err error) {
	defer m.track(ctx, "popular_vendors", time.Now(), &err)

	if limit <= 0 {
		limit = DefaultPopularVendorLimit
	}
	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	return queryVendors(ctx, db, popularVendorsQuery, limit)
}

func queryVendors(ctx context.Context, db *sql.DB, query string, args ...any) ([]core.Vendor, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vendors := []core.Vendor{}
	for rows.Next() {
		var v core.Vendor
		if err := rows.Scan(&v.Name, &v.UsageCount); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}
