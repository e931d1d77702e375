package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"expensetracker/internal/core"
)

const (
	insertCategoryQuery    = `INSERT INTO categories (id, name, color, icon, parent_id) VALUES (?, ?, ?, ?, ?)`
	categoriesQuery        = `SELECT id, name, color, icon, parent_id FROM categories ORDER BY rowid`
	childCountQuery        = `SELECT COUNT(*) FROM categories WHERE parent_id = ?`
	categoryUsageQuery     = `SELECT COUNT(*) FROM expenses WHERE category_id = ?`
	deleteCategoryQuery    = `DELETE FROM categories WHERE id = ?`
	moveCategoryQuery      = `UPDATE categories SET parent_id = ? WHERE id = ?`
	categoryAncestorsQuery = `WITH RECURSIVE ancestors(id, parent_id, depth) AS (
	SELECT id, parent_id, 1 FROM categories WHERE id = ?
	UNION ALL
	SELECT c.id, c.parent_id, a.depth + 1 FROM categories c JOIN ancestors a ON c.id = a.parent_id WHERE a.depth < 64
)
SELECT COALESCE(MAX(depth), 0) FROM ancestors`
	categorySubtreeQuery = `WITH RECURSIVE subtree(id, depth) AS (
	SELECT id, 1 FROM categories WHERE id = ?
	UNION ALL
	SELECT c.id, s.depth + 1 FROM categories c JOIN subtree s ON c.parent_id = s.id WHERE s.depth < 64
)
SELECT COALESCE(MAX(depth), 0), COALESCE(SUM(id = ?), 0) FROM subtree`
)

// CreateCategory stores a new category under an optional parent.
func (m *Manager) CreateCategory(ctx context.Context, in core.CategoryInput) (id string, err error) {
	defer m.track(ctx, "create_category", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return "", err
	}

	if in.ParentID != "" {
		var parentDepth int
		if err := db.QueryRowContext(ctx, categoryAncestorsQuery, in.ParentID).Scan(&parentDepth); err != nil {
			return "", err
		}
		if parentDepth+1 > core.MaxCategoryDepth {
			return "", ErrCategoryTooDeep
		}
	}

	id = m.newID()
	if _, err := db.ExecContext(ctx, insertCategoryQuery, id, in.Name, in.Color, in.Icon, nullString(in.ParentID)); err != nil {
		return "", err
	}
	return id, nil
}

// GetCategories returns the flat category list in insertion order.
func (m *Manager) GetCategories(ctx context.Context) (list []core.Category, err error) {
	defer m.track(ctx, "get_categories", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, categoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list = []core.Category{}
	for rows.Next() {
		var (
			c      core.Category
			parent sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &parent); err != nil {
			return nil, err
		}
		c.ParentID = parent.String
		list = append(list, c)
	}
	return list, rows.Err()
}

func (m *Manager) GetCategoryTree(ctx context.Context) ([]*core.CategoryNode, error) {
	list, err := m.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.BuildCategoryTree(list), nil
}

func (m *Manager) UpdateCategory(ctx context.Context, id string, u core.CategoryUpdate) (err error) {
	defer m.track(ctx, "update_category", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *u.Color)
	}
	if u.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *u.Icon)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err = db.ExecContext(ctx, "UPDATE categories SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return err
}

// DeleteCategory removes a leaf category that no expense uses.
// Children are checked before expense usage.
func (m *Manager) DeleteCategory(ctx context.Context, id string) (err error) {
	defer m.track(ctx, "delete_category", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}

	var n int
	if err := db.QueryRowContext(ctx, childCountQuery, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryHasChildren
	}
	if err := db.QueryRowContext(ctx, categoryUsageQuery, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}

	_, err = db.ExecContext(ctx, deleteCategoryQuery, id)
	return err
}

// MoveCategoryToParent re-parents id. An empty parentID makes it a root.
func (m *Manager) MoveCategoryToParent(ctx context.Context, id, parentID string) (err error) {
	defer m.track(ctx, "move_category", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}

	if parentID != "" {
		var height, containsParent int
		if err := db.QueryRowContext(ctx, categorySubtreeQuery, id, parentID).Scan(&height, &containsParent); err != nil {
			return err
		}
		if containsParent > 0 {
			return ErrCategoryCycle
		}

		var parentDepth int
		if err := db.QueryRowContext(ctx, categoryAncestorsQuery, parentID).Scan(&parentDepth); err != nil {
			return err
		}
		if parentDepth+height > core.MaxCategoryDepth {
			return ErrCategoryTooDeep
		}
	}

	_, err = db.ExecContext(ctx, moveCategoryQuery, nullString(parentID), id)
	return err
}
