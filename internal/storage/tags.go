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
	insertTagQuery = `INSERT INTO tags (id, name, color, created_at) VALUES (?, ?, ?, ?)`
	deleteTagQuery = `DELETE FROM tags WHERE id = ?`
	findTagQuery   = `SELECT id, name, color, created_at FROM tags WHERE LOWER(name) = LOWER(?) LIMIT 1`
	tagsQuery      = `SELECT t.id, t.name, t.color, t.created_at, COUNT(et.expense_id) AS usage_count
FROM tags t
LEFT JOIN expense_tags et ON et.tag_id = t.id`
	tagsGroupBy = `
GROUP BY t.id
ORDER BY usage_count DESC, t.name`
)

func (m *Manager) CreateTag(ctx context.Context, in core.TagInput) (id string, err error) {
	defer m.track(ctx, "create_tag", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return "", err
	}
	id = m.newID()
	if _, err := db.ExecContext(ctx, insertTagQuery, id, in.Name, nullString(in.Color), formatTime(m.now())); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Manager) UpdateTag(ctx context.Context, id string, u core.TagUpdate) (err error) {
	defer m.track(ctx, "update_tag", time.Now(), &err)

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
		args = append(args, nullString(*u.Color))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err = db.ExecContext(ctx, "UPDATE tags SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return err
}

// DeleteTag removes the tag and its links to expenses, whether or not it is in use.
func (m *Manager) DeleteTag(ctx context.Context, id string) (err error) {
	defer m.track(ctx, "delete_tag", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, deleteTagQuery, id)
	return err
}

// GetTags returns every tag with its usage count, most used first.
func (m *Manager) GetTags(ctx context.Context) (tags []core.Tag, err error) {
	defer m.track(ctx, "get_tags", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	return queryTags(ctx, db, tagsQuery+tagsGroupBy)
}

// SearchTags matches tag names containing query, ignoring case.
func (m *Manager) SearchTags(ctx context.Context, query string) (tags []core.Tag, err error) {
	defer m.track(ctx, "search_tags", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	return queryTags(ctx, db, tagsQuery+"\nWHERE t.name LIKE ? ESCAPE '\\'"+tagsGroupBy, likePattern(query))
}

// GetOrCreateTag returns the tag whose name equals name ignoring case,
// creating it when absent. Two concurrent calls for a new name may both create it.
func (m *Manager) GetOrCreateTag(ctx context.Context, name string) (tag core.Tag, err error) {
	defer m.track(ctx, "get_or_create_tag", time.Now(), &err)

	db, err := m.conn()
	if err != nil {
		return core.Tag{}, err
	}

	var (
		color     sql.NullString
		createdAt string
	)
	err = db.QueryRowContext(ctx, findTagQuery, name).Scan(&tag.ID, &tag.Name, &color, &createdAt)
	switch {
	case err == nil:
		tag.Color = color.String
		tag.CreatedAt, err = parseTime(createdAt)
		return tag, err
	case !errors.Is(err, sql.ErrNoRows):
		return core.Tag{}, err
	}

	now := m.now()
	tag = core.Tag{ID: m.newID(), Name: name, CreatedAt: now.UTC().Truncate(time.Millisecond)}
	if _, err := db.ExecContext(ctx, insertTagQuery, tag.ID, tag.Name, nil, formatTime(now)); err != nil {
		return core.Tag{}, err
	}
	return tag, nil
}

func queryTags(ctx context.Context, db *sql.DB, query string, args ...any) ([]core.Tag, error) {
	rows, err := db.QueryContext(ctx, query, args...)
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
		if err := rows.Scan(&t.ID, &t.Name, &color, &createdAt, &t.UsageCount); err != nil {
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
