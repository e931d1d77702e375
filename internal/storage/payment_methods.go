package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"expensetracker/internal/core"
)

const (
	clearDefaultPaymentQuery = `UPDATE payment_methods SET is_default = 0`
	insertPaymentQuery       = `INSERT INTO payment_methods (id, type, name, alias, last_four_digits, card_network, bank_name, provider, is_default, is_active, color, icon, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`
	deactivatePaymentQuery = `UPDATE payment_methods SET is_active = 0, updated_at = ? WHERE id = ?`
	paymentMethodsQuery    = `SELECT id, type, name, alias, last_four_digits, card_network, bank_name, provider, is_default, is_active, color, icon, created_at, updated_at
FROM payment_methods
WHERE is_active = 1
ORDER BY is_default DESC, name`
)

// CreatePaymentMethod stores a new active payment method. When it is the
// default, every other method loses the flag first.
func (m *Manager) CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (id string, err error) {
	defer m.track(ctx, "create_payment_method", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return "", err
	}

	id = m.newID()
	now := formatTime(m.now())
	err = m.withTx(ctx, db, func(tx *sql.Tx) error {
		if in.IsDefault {
			if _, err := tx.ExecContext(ctx, clearDefaultPaymentQuery); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, insertPaymentQuery,
			id, string(in.Type), in.Name, nullString(in.Alias), nullString(in.LastFourDigits),
			nullString(in.CardNetwork), nullString(in.BankName), nullString(in.Provider),
			boolInt(in.IsDefault), nullString(in.Color), nullString(in.Icon), now, now,
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (m *Manager) UpdatePaymentMethod(ctx context.Context, id string, u core.PaymentMethodUpdate) (err error) {
	defer m.track(ctx, "update_payment_method", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Type != nil {
		set("type", string(*u.Type))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Alias != nil {
		set("alias", nullString(*u.Alias))
	}
	if u.LastFourDigits != nil {
		set("last_four_digits", nullString(*u.LastFourDigits))
	}
	if u.CardNetwork != nil {
		set("card_network", nullString(*u.CardNetwork))
	}
	if u.BankName != nil {
		set("bank_name", nullString(*u.BankName))
	}
	if u.Provider != nil {
		set("provider", nullString(*u.Provider))
	}
	if u.IsDefault != nil {
		set("is_default", boolInt(*u.IsDefault))
	}
	if u.Color != nil {
		set("color", nullString(*u.Color))
	}
	if u.Icon != nil {
		set("icon", nullString(*u.Icon))
	}
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", formatTime(m.now()))
	args = append(args, id)

	query := "UPDATE payment_methods SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	return m.withTx(ctx, db, func(tx *sql.Tx) error {
		if u.IsDefault != nil && *u.IsDefault {
			if _, err := tx.ExecContext(ctx, clearDefaultPaymentQuery); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// DeletePaymentMethod deactivates the method. The row stays so expenses keep their reference.
func (m *Manager) DeletePaymentMethod(ctx context.Context, id string) (err error) {
	defer m.track(ctx, "delete_payment_method", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, deactivatePaymentQuery, formatTime(m.now()), id)
	return err
}

// GetPaymentMethods lists active methods, the default first.
func (m *Manager) GetPaymentMethods(ctx context.Context) (list []core.PaymentMethod, err error) {
	defer m.track(ctx, "get_payment_methods", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, paymentMethodsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list = []core.PaymentMethod{}
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, pm)
	}
	return list, rows.Err()
}

func scanPaymentMethod(rs rowScanner) (core.PaymentMethod, error) {
	var (
		pm                                core.PaymentMethod
		typ                               string
		alias, last4, network, bank, prov sql.NullString
		color, icon                       sql.NullString
		isDefault, isActive               int64
		createdAt, updatedAt              string
	)
	if err := rs.Scan(&pm.ID, &typ, &pm.Name, &alias, &last4, &network, &bank, &prov,
		&isDefault, &isActive, &color, &icon, &createdAt, &updatedAt); err != nil {
		return core.PaymentMethod{}, err
	}
	pm.Type = core.PaymentMethodType(typ)
	pm.Alias = alias.String
	pm.LastFourDigits = last4.String
	pm.CardNetwork = network.String
	pm.BankName = bank.String
	pm.Provider = prov.String
	pm.IsDefault = isDefault != 0
	pm.IsActive = isActive != 0
	pm.Color = color.String
	pm.Icon = icon.String

	var err error
	if pm.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.PaymentMethod{}, err
	}
	if pm.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.PaymentMethod{}, err
	}
	return pm, nil
}
