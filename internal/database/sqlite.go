package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wishlist-go/internal/apperr"
	"wishlist-go/internal/database/migrations"
	"wishlist-go/internal/model"
	"wishlist-go/internal/wishlist"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements wishlist.Store using SQLite.
type SQLiteDatabase struct {
	db       *sql.DB
	queries  *queries
	path     string
	clock    wishlist.Clock
	idgen    wishlist.IDGenerator
	notifier wishlist.Notifier
}

// NewSQLiteDatabase opens the database at path and brings its schema up to date.
// path can be a file path or ":memory:" for an in-memory database.
// A nil clock or idgen falls back to the real clock and UUIDs.
func NewSQLiteDatabase(path string, clock wishlist.Clock, idgen wishlist.IDGenerator) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := NewSQLiteDatabaseFromDB(db, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is configured and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock wishlist.Clock, idgen wishlist.IDGenerator) *SQLiteDatabase {
	if clock == nil {
		clock = wishlist.RealClock{}
	}
	if idgen == nil {
		idgen = wishlist.UUIDGenerator{}
	}
	return &SQLiteDatabase{
		db:       db,
		queries:  newQueries(db),
		clock:    clock,
		idgen:    idgen,
		notifier: wishlist.NopNotifier{},
	}
}

// OpenConnection opens and configures a SQLite connection.
// The pool is limited to one connection: the store has a single writer, and
// every statement against ":memory:" must see the same database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// SetNotifier registers the receiver of change notifications.
// It must be called before the store is shared.
func (s *SQLiteDatabase) SetNotifier(n wishlist.Notifier) {
	if n == nil {
		n = wishlist.NopNotifier{}
	}
	s.notifier = n
}

// write runs fn in one transaction. fn returns the collections it changed;
// they are notified once the commit succeeds. Errors that are not already
// classified surface as TransactionError.
func (s *SQLiteDatabase) write(ctx context.Context, fn func(q *queries) ([]model.Collection, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Transaction("starting transaction", err)
	}
	defer tx.Rollback()

	touched, err := fn(s.queries.withTx(tx))
	if err != nil {
		var classified *apperr.Error
		if errors.As(err, &classified) {
			return err
		}
		return apperr.Transaction("transaction aborted", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Transaction("committing transaction", err)
	}

	if len(touched) > 0 {
		s.notifier.Notify(ctx, touched...)
	}
	return nil
}

// Initialize seeds default categories into an empty category collection and
// creates the settings record if it is missing.
func (s *SQLiteDatabase) Initialize(ctx context.Context) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		var seeded []model.Collection
		n, err := q.countCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting categories: %w", err)
		}
		if n == 0 {
			if err := seedCategories(ctx, q, s.clock); err != nil {
				return nil, err
			}
			seeded = append(seeded, model.Categories)
		}

		created, err := ensureSettings(ctx, q)
		if err != nil {
			return nil, err
		}
		if created {
			seeded = append(seeded, model.AppSettings)
		}
		return seeded, nil
	})
}

func seedCategories(ctx context.Context, q *queries, clock wishlist.Clock) error {
	for _, c := range model.DefaultCategories(clock.Now()) {
		if err := q.insertCategory(ctx, c); err != nil {
			return fmt.Errorf("seeding category %s: %w", c.ID, err)
		}
	}
	return nil
}

// ensureSettings inserts the default settings record if none exists.
func ensureSettings(ctx context.Context, q *queries) (bool, error) {
	_, err := q.getSettings(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("reading settings: %w", err)
	}
	if err := q.upsertSettings(ctx, model.DefaultSettings()); err != nil {
		return false, fmt.Errorf("creating settings: %w", err)
	}
	return true, nil
}

// Category operations

func (s *SQLiteDatabase) AddCategory(ctx context.Context, name, emoji string, isDefault bool) (*model.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("category name is required")
	}

	c := &model.Category{
		ID:        s.idgen.New(),
		Name:      name,
		Emoji:     emoji,
		IsDefault: isDefault,
		CreatedAt: s.clock.Now().UTC(),
	}
	err := s.write(ctx, func(q *queries) ([]model.Collection, error) {
		if err := q.insertCategory(ctx, c); err != nil {
			return nil, fmt.Errorf("inserting category: %w", err)
		}
		return []model.Collection{model.Categories}, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteDatabase) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		c, err := q.getCategory(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("finding category: %w", err)
		}
		if err := patch.Apply(c); err != nil {
			return nil, err
		}
		if err := q.updateCategory(ctx, c); err != nil {
			return nil, fmt.Errorf("updating category: %w", err)
		}
		return []model.Collection{model.Categories}, nil
	})
}

// DeleteCategory removes the category, every item that references it, and a
// settings selection pointing at it, all in one transaction.
func (s *SQLiteDatabase) DeleteCategory(ctx context.Context, id string) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		removed, err := q.deleteCategory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("deleting category: %w", err)
		}
		items, err := q.deleteItemsByCategory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("deleting items of category: %w", err)
		}
		cleared, err := q.clearSelectedCategory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("clearing selected category: %w", err)
		}
		var touched []model.Collection
		if removed > 0 {
			touched = append(touched, model.Categories)
		}
		if items > 0 {
			touched = append(touched, model.WishlistItems)
		}
		if cleared > 0 {
			touched = append(touched, model.AppSettings)
		}
		return touched, nil
	})
}

func (s *SQLiteDatabase) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	c, err := s.queries.getCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("finding category: %w", err)
	}
	return c, nil
}

func (s *SQLiteDatabase) ListCategories(ctx context.Context) ([]*model.Category, error) {
	cats, err := s.queries.listCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// Item operations

// AddItem inserts the item with order one past the current maximum, computed
// inside the same transaction as the insert.
func (s *SQLiteDatabase) AddItem(ctx context.Context, item model.NewItem) (*model.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	it := &model.Item{
		ID:          s.idgen.New(),
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		Notes:       item.Notes,
		CategoryID:  item.CategoryID,
		ImageBlob:   item.ImageBlob,
		ImageURL:    item.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.write(ctx, func(q *queries) ([]model.Collection, error) {
		order, err := q.nextOrder(ctx)
		if err != nil {
			return nil, fmt.Errorf("computing item order: %w", err)
		}
		it.Order = order
		if err := q.insertItem(ctx, it); err != nil {
			return nil, fmt.Errorf("inserting item: %w", err)
		}
		return []model.Collection{model.WishlistItems}, nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *SQLiteDatabase) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		it, err := q.getItem(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("finding item: %w", err)
		}
		if err := patch.Apply(it); err != nil {
			return nil, err
		}
		it.UpdatedAt = s.clock.Now().UTC()
		if err := q.updateItem(ctx, it); err != nil {
			return nil, fmt.Errorf("updating item: %w", err)
		}
		return []model.Collection{model.WishlistItems}, nil
	})
}

func (s *SQLiteDatabase) DeleteItem(ctx context.Context, id string) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		n, err := q.deleteItem(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("deleting item: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		return []model.Collection{model.WishlistItems}, nil
	})
}

func (s *SQLiteDatabase) GetItem(ctx context.Context, id string) (*model.Item, error) {
	it, err := s.queries.getItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}
	return it, nil
}

func (s *SQLiteDatabase) ListItems(ctx context.Context) ([]*model.Item, error) {
	items, err := s.queries.listItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// Reorder sets order = index for every id in ids. Unknown ids are skipped and
// items not listed keep their order, so values may collide afterwards.
func (s *SQLiteDatabase) Reorder(ctx context.Context, ids []string) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		var changed int64
		for i, id := range ids {
			n, err := q.setOrder(ctx, id, int64(i))
			if err != nil {
				return nil, fmt.Errorf("setting order of %s: %w", id, err)
			}
			changed += n
		}
		if changed == 0 {
			return nil, nil
		}
		return []model.Collection{model.WishlistItems}, nil
	})
}

// Settings operations

// GetSettings returns the settings record, creating it with defaults on first access.
func (s *SQLiteDatabase) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings, err := s.queries.getSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	err = s.write(ctx, func(q *queries) ([]model.Collection, error) {
		created, err := ensureSettings(ctx, q)
		if err != nil || !created {
			return nil, err
		}
		return []model.Collection{model.AppSettings}, nil
	})
	if err != nil {
		return nil, err
	}

	settings, err = s.queries.getSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings merges patch over the existing record, or over the defaults
// when none exists, and writes the single record.
func (s *SQLiteDatabase) UpdateSettings(ctx context.Context, patch model.SettingsPatch) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		current, err := q.getSettings(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			current = model.DefaultSettings()
		} else if err != nil {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
		if err := patch.Apply(current); err != nil {
			return nil, err
		}
		if err := q.upsertSettings(ctx, current); err != nil {
			return nil, fmt.Errorf("writing settings: %w", err)
		}
		return []model.Collection{model.AppSettings}, nil
	})
}

// Whole-store operations

// Snapshot reads the three collections inside one transaction.
func (s *SQLiteDatabase) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting read transaction: %w", err)
	}
	defer tx.Rollback()

	q := s.queries.withTx(tx)
	snap := &model.Snapshot{}

	if snap.Categories, err = q.listCategories(ctx); err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	if snap.Items, err = q.listItems(ctx); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	snap.Settings, err = q.getSettings(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		snap.Settings = nil
	} else if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	return snap, nil
}

// ReplaceAll clears every collection and inserts snap verbatim, atomically.
func (s *SQLiteDatabase) ReplaceAll(ctx context.Context, snap *model.Snapshot) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		if err := q.clearAll(ctx); err != nil {
			return nil, err
		}
		for _, c := range snap.Categories {
			if err := q.insertCategory(ctx, c); err != nil {
				return nil, fmt.Errorf("inserting category %s: %w", c.ID, err)
			}
		}
		for _, it := range snap.Items {
			if err := q.insertItem(ctx, it); err != nil {
				return nil, fmt.Errorf("inserting item %s: %w", it.ID, err)
			}
		}
		if snap.Settings != nil {
			if err := q.upsertSettings(ctx, snap.Settings); err != nil {
				return nil, fmt.Errorf("inserting settings: %w", err)
			}
		}
		return model.AllCollections, nil
	})
}

// Reset clears every collection and reseeds the defaults, atomically, so the
// store is never observed uninitialized.
func (s *SQLiteDatabase) Reset(ctx context.Context) error {
	return s.write(ctx, func(q *queries) ([]model.Collection, error) {
		if err := q.clearAll(ctx); err != nil {
			return nil, err
		}
		if err := seedCategories(ctx, q, s.clock); err != nil {
			return nil, err
		}
		if err := q.upsertSettings(ctx, model.DefaultSettings()); err != nil {
			return nil, fmt.Errorf("seeding settings: %w", err)
		}
		return model.AllCollections, nil
	})
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements wishlist.Store
var _ wishlist.Store = (*SQLiteDatabase)(nil)
