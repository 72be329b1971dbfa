package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wishlist-go/internal/model"
)

// timeLayout is fixed width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds the SQL for the three collections. Lookups of a missing
// row return sql.ErrNoRows; callers decide what that means.
type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

func (q *queries) withTx(tx *sql.Tx) *queries {
	return &queries{db: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

// Categories

const categoryColumns = `id, name, emoji, is_default, created_at`

func scanCategory(row scanner) (*model.Category, error) {
	var (
		c         model.Category
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Emoji, &c.IsDefault, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = t
	return &c, nil
}

func (q *queries) insertCategory(ctx context.Context, c *model.Category) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Emoji, c.IsDefault, formatTime(c.CreatedAt))
	return err
}

func (q *queries) getCategory(ctx context.Context, id string) (*model.Category, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

func (q *queries) listCategories(ctx context.Context) ([]*model.Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (q *queries) countCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}

func (q *queries) updateCategory(ctx context.Context, c *model.Category) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, emoji = ? WHERE id = ?`,
		c.Name, c.Emoji, c.ID)
	return err
}

func (q *queries) deleteCategory(ctx context.Context, id string) (int64, error) {
	return affected(q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id))
}

// Items

const itemColumns = `id, title, description, price, notes, category_id, image_blob, image_url, sort_order, created_at, updated_at`

func scanItem(row scanner) (*model.Item, error) {
	var (
		it                   model.Item
		description, notes   sql.NullString
		imageURL             sql.NullString
		price                sql.NullFloat64
		createdAt, updatedAt string
	)
	err := row.Scan(&it.ID, &it.Title, &description, &price, &notes, &it.CategoryID,
		&it.ImageBlob, &imageURL, &it.Order, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	it.Description = nullString(description)
	it.Notes = nullString(notes)
	it.ImageURL = nullString(imageURL)
	if price.Valid {
		p := price.Float64
		it.Price = &p
	}
	if len(it.ImageBlob) == 0 {
		it.ImageBlob = nil
	}
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func itemArgs(it *model.Item) []any {
	var blob any
	if len(it.ImageBlob) > 0 {
		blob = it.ImageBlob
	}
	var price any
	if it.Price != nil {
		price = *it.Price
	}
	return []any{
		it.ID, it.Title, toNullString(it.Description), price, toNullString(it.Notes), it.CategoryID,
		blob, toNullString(it.ImageURL), it.Order, formatTime(it.CreatedAt), formatTime(it.UpdatedAt),
	}
}

func (q *queries) insertItem(ctx context.Context, it *model.Item) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		itemArgs(it)...)
	return err
}

func (q *queries) getItem(ctx context.Context, id string) (*model.Item, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM wishlist_items WHERE id = ?`, id)
	return scanItem(row)
}

func (q *queries) listItems(ctx context.Context) ([]*model.Item, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM wishlist_items ORDER BY sort_order, created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// updateItem rewrites every mutable column of the row with it.ID.
// created_at is never rewritten.
func (q *queries) updateItem(ctx context.Context, it *model.Item) error {
	var blob any
	if len(it.ImageBlob) > 0 {
		blob = it.ImageBlob
	}
	var price any
	if it.Price != nil {
		price = *it.Price
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE wishlist_items SET title = ?, description = ?, price = ?, notes = ?, category_id = ?,
			image_blob = ?, image_url = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		it.Title, toNullString(it.Description), price, toNullString(it.Notes), it.CategoryID,
		blob, toNullString(it.ImageURL), it.Order, formatTime(it.UpdatedAt), it.ID)
	return err
}

func (q *queries) deleteItem(ctx context.Context, id string) (int64, error) {
	return affected(q.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE id = ?`, id))
}

func (q *queries) deleteItemsByCategory(ctx context.Context, categoryID string) (int64, error) {
	return affected(q.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE category_id = ?`, categoryID))
}

func (q *queries) nextOrder(ctx context.Context) (int64, error) {
	var next int64
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM wishlist_items`).Scan(&next)
	return next, err
}

func (q *queries) setOrder(ctx context.Context, id string, order int64) (int64, error) {
	return affected(q.db.ExecContext(ctx, `UPDATE wishlist_items SET sort_order = ? WHERE id = ?`, order, id))
}

// Settings

func (q *queries) getSettings(ctx context.Context) (*model.Settings, error) {
	var (
		s        model.Settings
		selected sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT theme, grid_view, selected_category_id, currency FROM app_settings WHERE id = 1`).
		Scan(&s.Theme, &s.GridView, &selected, &s.Currency)
	if err != nil {
		return nil, err
	}
	s.SelectedCategoryID = nullString(selected)
	return &s, nil
}

// upsertSettings writes the single settings row, creating it if absent.
func (q *queries) upsertSettings(ctx context.Context, s *model.Settings) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO app_settings (id, theme, grid_view, selected_category_id, currency)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			theme = excluded.theme,
			grid_view = excluded.grid_view,
			selected_category_id = excluded.selected_category_id,
			currency = excluded.currency`,
		string(s.Theme), string(s.GridView), toNullString(s.SelectedCategoryID), s.Currency)
	return err
}

func (q *queries) clearSelectedCategory(ctx context.Context, categoryID string) (int64, error) {
	return affected(q.db.ExecContext(ctx,
		`UPDATE app_settings SET selected_category_id = NULL WHERE selected_category_id = ?`, categoryID))
}

// clearAll empties the three collections.
func (q *queries) clearAll(ctx context.Context) error {
	for _, table := range []string{"categories", "wishlist_items", "app_settings"} {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
