package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expensetracker/internal/core"
)

const (
	currenciesQuery  = `SELECT code, symbol, name FROM currencies ORDER BY rowid`
	preferencesQuery = `SELECT p.default_currency_code, COALESCE(c.symbol, ''), COALESCE(c.name, ''), p.theme, p.language, p.date_format, p.first_day_of_week
FROM user_preferences p
LEFT JOIN currencies c ON c.code = p.default_currency_code
WHERE p.id = 1`
	savePreferencesQuery = `INSERT INTO user_preferences (id, default_currency_code, theme, language, date_format, first_day_of_week)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	default_currency_code = excluded.default_currency_code,
	theme = excluded.theme,
	language = excluded.language,
	date_format = excluded.date_format,
	first_day_of_week = excluded.first_day_of_week`
)

func (m *Manager) GetCurrencies(ctx context.Context) (list []core.Currency, err error) {
	defer m.track(ctx, "get_currencies", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, currenciesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list = []core.Currency{}
	for rows.Next() {
		var c core.Currency
		if err := rows.Scan(&c.Code, &c.Symbol, &c.Name); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// GetUserPreferences returns nil when nothing has been saved yet.
func (m *Manager) GetUserPreferences(ctx context.Context) (prefs *core.UserPreferences, err error) {
	defer m.track(ctx, "get_preferences", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	var (
		p     core.UserPreferences
		theme string
	)
	err = db.QueryRowContext(ctx, preferencesQuery).Scan(
		&p.DefaultCurrency.Code, &p.DefaultCurrency.Symbol, &p.DefaultCurrency.Name,
		&theme, &p.Language, &p.DateFormat, &p.FirstDayOfWeek,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Theme = core.Theme(theme)
	return &p, nil
}

// SaveUserPreferences writes the single preferences row.
func (m *Manager) SaveUserPreferences(ctx context.Context, p core.UserPreferences) (err error) {
	defer m.track(ctx, "save_preferences", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, savePreferencesQuery,
		p.DefaultCurrency.Code, string(p.Theme), p.Language, p.DateFormat, p.FirstDayOfWeek)
	return err
}
