package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

const expenseColumns = `e.id, e.amount, e.description, e.vendor, e.date, e.location, e.notes, e.created_at, e.updated_at,
	e.category_id, c.name, c.color, c.icon, c.parent_id,
	e.currency_code, cu.symbol, cu.name,
	pm.id, pm.type, pm.name, pm.alias, pm.last_four_digits, pm.card_network, pm.bank_name, pm.provider,
	pm.is_default, pm.is_active, pm.color, pm.icon, pm.created_at, pm.updated_at`

const expenseFrom = `
FROM expenses e
LEFT JOIN categories c ON c.id = e.category_id
LEFT JOIN currencies cu ON cu.code = e.currency_code
LEFT JOIN payment_methods pm ON pm.id = e.payment_method_id`

const (
	insertExpenseQuery = `INSERT INTO expenses (id, amount, description, vendor, date, category_id, currency_code, payment_method_id, location, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertExpenseTagQuery  = `INSERT INTO expense_tags (expense_id, tag_id) VALUES (?, ?)`
	deleteExpenseTagsQuery = `DELETE FROM expense_tags WHERE expense_id = ?`
	deleteExpenseQuery     = `DELETE FROM expenses WHERE id = ?`
	expenseTagsQuery       = `SELECT t.id, t.name, t.color, t.created_at
FROM expense_tags et
JOIN tags t ON t.id = et.tag_id
WHERE et.expense_id = ?
ORDER BY et.rowid`
)

// CreateExpense records the vendor, stores the expense and links its tags.
// It returns the generated id.
func (m *Manager) CreateExpense(ctx context.Context, in core.ExpenseInput) (id string, err error) {
	defer m.track(ctx, "create_expense", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return "", err
	}
	if !validDate(in.Date) {
		return "", core.ErrInvalidDate
	}

	if err := m.upsertVendor(ctx, db, in.Vendor); err != nil {
		return "", err
	}

	id = m.newID()
	now := formatTime(m.now())
	var paymentMethodID sql.NullString
	if in.PaymentMethod != nil {
		paymentMethodID = nullString(in.PaymentMethod.ID)
	}

	err = m.withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertExpenseQuery,
			id, in.Amount, nullString(in.Description), in.Vendor, formatTime(in.Date),
			in.Category.ID, in.Currency.Code, paymentMethodID,
			nullString(in.Location), nullString(in.Notes), now, now,
		); err != nil {
			return err
		}
		for _, t := range in.Tags {
			if _, err := tx.ExecContext(ctx, insertExpenseTagQuery, id, t.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.DebugContext(ctx, "Expense created", log.NewFields().WithExpense(id, in.Vendor, in.Amount, in.Category.ID).ToSlice()...)
	return id, nil
}

// UpdateExpense writes only the fields set on u. An empty update does nothing.
func (m *Manager) UpdateExpense(ctx context.Context, id string, u core.ExpenseUpdate) (err error) {
	defer m.track(ctx, "update_expense", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}
	if u.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Amount != nil {
		set("amount", *u.Amount)
	}
	if u.Description != nil {
		set("description", nullString(*u.Description))
	}
	if u.Vendor != nil {
		set("vendor", *u.Vendor)
	}
	if u.CategoryID != nil {
		set("category_id", *u.CategoryID)
	}
	if u.Date != nil {
		if !validDate(*u.Date) {
			return core.ErrInvalidDate
		}
		set("date", formatTime(*u.Date))
	}
	if u.CurrencyCode != nil {
		set("currency_code", *u.CurrencyCode)
	}
	if u.PaymentMethodID != nil {
		set("payment_method_id", nullString(*u.PaymentMethodID))
	}
	if u.Location != nil {
		set("location", nullString(*u.Location))
	}
	if u.Notes != nil {
		set("notes", nullString(*u.Notes))
	}
	set("updated_at", formatTime(m.now()))
	args = append(args, id)

	query := "UPDATE expenses SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	return m.withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		if u.TagIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, deleteExpenseTagsQuery, id); err != nil {
			return err
		}
		for _, tagID := range *u.TagIDs {
			if _, err := tx.ExecContext(ctx, insertExpenseTagQuery, id, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteExpense removes the expense unconditionally. Tag links go with it.
func (m *Manager) DeleteExpense(ctx context.Context, id string) (err error) {
	defer m.track(ctx, "delete_expense", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, deleteExpenseQuery, id)
	return err
}

// GetExpense loads one expense with its references and tags.
func (m *Manager) GetExpense(ctx context.Context, id string) (e core.Expense, err error) {
	defer m.track(ctx, "get_expense", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return core.Expense{}, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+expenseColumns+expenseFrom+"\nWHERE e.id = ?", id)
	e, err = scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, err
	}
	if e.Tags, err = m.expenseTags(ctx, db, e.ID); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// GetExpenses lists expenses matching filter, newest first. A limit of zero
// or less means no limit.
func (m *Manager) GetExpenses(ctx context.Context, filter *core.ExpenseFilter, limit, offset int) (list []core.Expense, err error) {
	defer m.track(ctx, "get_expenses", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	query, args := buildExpenseQuery(filter, limit, offset)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// Rows must be closed before the tag lookups run on the single connection.
	list = []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range list {
		if list[i].Tags, err = m.expenseTags(ctx, db, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func buildExpenseQuery(f *core.ExpenseFilter, limit, offset int) (string, []any) {
	var where []string
	var args []any

	if f != nil {
		if len(f.Categories) > 0 {
			where = append(where, "e.category_id IN ("+placeholders(len(f.Categories))+")")
			for _, id := range f.Categories {
				args = append(args, id)
			}
		}
		if f.DateRange != nil {
			where = append(where, "e.date >= ? AND e.date <= ?")
			args = append(args, formatTime(f.DateRange.Start), formatTime(f.DateRange.End))
		}
		if f.MinAmount != nil {
			where = append(where, "e.amount >= ?")
			args = append(args, *f.MinAmount)
		}
		if f.MaxAmount != nil {
			where = append(where, "e.amount <= ?")
			args = append(args, *f.MaxAmount)
		}
		if f.SearchText != "" {
			p := likePattern(f.SearchText)
			where = append(where, `(e.vendor LIKE ? ESCAPE '\' OR e.description LIKE ? ESCAPE '\' OR e.notes LIKE ? ESCAPE '\')`)
			args = append(args, p, p, p)
		}
		if len(f.PaymentMethods) > 0 {
			where = append(where, "e.payment_method_id IN ("+placeholders(len(f.PaymentMethods))+")")
			for _, id := range f.PaymentMethods {
				args = append(args, id)
			}
		}
		if len(f.Tags) > 0 {
			where = append(where, "EXISTS (SELECT 1 FROM expense_tags et WHERE et.expense_id = e.id AND et.tag_id IN ("+placeholders(len(f.Tags))+"))")
			for _, id := range f.Tags {
				args = append(args, id)
			}
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(expenseColumns)
	b.WriteString(expenseFrom)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY e.date DESC, e.created_at DESC")

	switch {
	case limit > 0:
		b.WriteString("\nLIMIT ? OFFSET ?")
		args = append(args, limit, max(offset, 0))
	case offset > 0:
		b.WriteString("\nLIMIT -1 OFFSET ?")
		args = append(args, offset)
	}
	return b.String(), args
}

func (m *Manager) expenseTags(ctx context.Context, db *sql.DB, expenseID string) ([]core.Tag, error) {
	rows, err := db.QueryContext(ctx, expenseTagsQuery, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []core.Tag{}
	for rows.Next() {
		var (
			t         core.Tag
			color     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &color, &createdAt); err != nil {
			return nil, err
		}
		t.Color = color.String
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func scanExpense(rs rowScanner) (core.Expense, error) {
	var (
		e                                  core.Expense
		description, location, notes       sql.NullString
		date, createdAt, updatedAt         string
		catName, catColor, catIcon, parent sql.NullString
		curSymbol, curName                 sql.NullString
		pmID, pmType, pmName, pmAlias      sql.NullString
		pmLast4, pmNetwork, pmBank, pmProv sql.NullString
		pmDefault, pmActive                sql.NullInt64
		pmColor, pmIcon                    sql.NullString
		pmCreated, pmUpdated               sql.NullString
	)
	err := rs.Scan(
		&e.ID, &e.Amount, &description, &e.Vendor, &date, &location, &notes, &createdAt, &updatedAt,
		&e.Category.ID, &catName, &catColor, &catIcon, &parent,
		&e.Currency.Code, &curSymbol, &curName,
		&pmID, &pmType, &pmName, &pmAlias, &pmLast4, &pmNetwork, &pmBank, &pmProv,
		&pmDefault, &pmActive, &pmColor, &pmIcon, &pmCreated, &pmUpdated,
	)
	if err != nil {
		return core.Expense{}, err
	}

	e.Description = description.String
	e.Location = location.String
	e.Notes = notes.String
	if e.Date, err = parseTime(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Expense{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Expense{}, err
	}

	e.Category.Name = catName.String
	e.Category.Color = catColor.String
	e.Category.Icon = catIcon.String
	e.Category.ParentID = parent.String
	e.Currency.Symbol = curSymbol.String
	e.Currency.Name = curName.String

	if pmID.Valid {
		pm := &core.PaymentMethod{
			ID:             pmID.String,
			Type:           core.PaymentMethodType(pmType.String),
			Name:           pmName.String,
			Alias:          pmAlias.String,
			LastFourDigits: pmLast4.String,
			CardNetwork:    pmNetwork.String,
			BankName:       pmBank.String,
			Provider:       pmProv.String,
			IsDefault:      pmDefault.Int64 != 0,
			IsActive:       pmActive.Int64 != 0,
			Color:          pmColor.String,
			Icon:           pmIcon.String,
		}
		if pmCreated.Valid {
			pm.CreatedAt, _ = parseTime(pmCreated.String)
		}
		if pmUpdated.Valid {
			pm.UpdatedAt, _ = parseTime(pmUpdated.String)
		}
		e.PaymentMethod = pm
	}
	return e, nil
}
