package database

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wishlist-go/internal/apperr"
	"wishlist-go/internal/model"
)

// tickClock advances by one second on every call so timestamps are distinct.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type seqIDs struct{ n int }

func (g *seqIDs) New() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

// recordingNotifier remembers every notification it receives.
type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]model.Collection
}

func (r *recordingNotifier) Notify(_ context.Context, cs ...model.Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]model.Collection(nil), cs...))
}

func (r *recordingNotifier) last() []model.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// newTestDB creates a new migrated in-memory database with a ticking clock.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	clock := &tickClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	db, err := NewSQLiteDatabase(":memory:", clock, &seqIDs{})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func mustAddItem(t *testing.T, db *SQLiteDatabase, title, categoryID string) *model.Item {
	t.Helper()
	it, err := db.AddItem(context.Background(), model.NewItem{Title: title, CategoryID: categoryID})
	if err != nil {
		t.Fatalf("AddItem(%q) error = %v", title, err)
	}
	return it
}

func itemIDs(t *testing.T, db *SQLiteDatabase) []string {
	t.Helper()
	items, err := db.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestSQLiteDatabase_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds defaults once", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("second Initialize() error = %v", err)
		}

		cats, err := db.ListCategories(ctx)
		if err != nil {
			t.Fatalf("ListCategories() error = %v", err)
		}
		want := []string{"electronics", "fashion", "home", "books"}
		if len(cats) != len(want) {
			t.Fatalf("len(categories) = %d, want %d", len(cats), len(want))
		}
		for i, c := range cats {
			if c.ID != want[i] {
				t.Errorf("categories[%d].ID = %q, want %q", i, c.ID, want[i])
			}
		}

		settings, err := db.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings() error = %v", err)
		}
		if *settings != *model.DefaultSettings() {
			t.Errorf("settings = %+v, want defaults", settings)
		}
	})

	t.Run("keeps user categories", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := db.AddCategory(ctx, "Games", "🎮", false); err != nil {
			t.Fatalf("AddCategory() error = %v", err)
		}

		if err := db.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}

		cats, _ := db.ListCategories(ctx)
		if len(cats) != 1 || cats[0].Name != "Games" {
			t.Errorf("categories = %v, want only Games", cats)
		}
	})
}

func TestSQLiteDatabase_AddCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and createdAt", func(t *testing.T) {
		db := newTestDB(t)

		c, err := db.AddCategory(ctx, "Books", "📚", false)
		if err != nil {
			t.Fatalf("AddCategory() error = %v", err)
		}
		if c.ID == "" {
			t.Error("ID is empty")
		}
		if c.CreatedAt.IsZero() {
			t.Error("CreatedAt is zero")
		}

		found, err := db.GetCategory(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetCategory() error = %v", err)
		}
		if found == nil || found.Name != "Books" || found.Emoji != "📚" || found.IsDefault {
			t.Errorf("GetCategory() = %+v, want Books", found)
		}
		if !found.CreatedAt.Equal(c.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, c.CreatedAt)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.AddCategory(ctx, "  ", "📚", false)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("AddCategory() error = %v, want validation error", err)
		}
	})
}

func TestSQLiteDatabase_UpdateCategory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	c, err := db.AddCategory(ctx, "Books", "📚", false)
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}

	if err := db.UpdateCategory(ctx, c.ID, model.CategoryPatch{Name: model.Ptr("Novels")}); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	found, _ := db.GetCategory(ctx, c.ID)
	if found.Name != "Novels" || found.Emoji != "📚" {
		t.Errorf("after update = %+v, want Novels with emoji kept", found)
	}

	if err := db.UpdateCategory(ctx, "missing", model.CategoryPatch{Name: model.Ptr("x")}); err != nil {
		t.Errorf("UpdateCategory(missing) error = %v, want nil", err)
	}

	err = db.UpdateCategory(ctx, c.ID, model.CategoryPatch{Name: model.Ptr("")})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("UpdateCategory(empty name) error = %v, want validation error", err)
	}
}

func TestSQLiteDatabase_DeleteCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades to exactly the category's items", func(t *testing.T) {
		db := newTestDB(t)
		books, _ := db.AddCategory(ctx, "Books", "📚", false)
		games, _ := db.AddCategory(ctx, "Games", "🎮", false)

		mustAddItem(t, db, "Dune", books.ID)
		mustAddItem(t, db, "Foundation", books.ID)
		keep := mustAddItem(t, db, "Chess", games.ID)

		if err := db.DeleteCategory(ctx, books.ID); err != nil {
			t.Fatalf("DeleteCategory() error = %v", err)
		}

		if c, _ := db.GetCategory(ctx, books.ID); c != nil {
			t.Error("category still present after delete")
		}
		items, _ := db.ListItems(ctx)
		if len(items) != 1 || items[0].ID != keep.ID {
			t.Errorf("items after delete = %v, want only %s", items, keep.ID)
		}
	})

	t.Run("clears selected category", func(t *testing.T) {
		db := newTestDB(t)
		books, _ := db.AddCategory(ctx, "Books", "📚", false)
		if err := db.UpdateSettings(ctx, model.SettingsPatch{SelectedCategoryID: &books.ID}); err != nil {
			t.Fatalf("UpdateSettings() error = %v", err)
		}

		if err := db.DeleteCategory(ctx, books.ID); err != nil {
			t.Fatalf("DeleteCategory() error = %v", err)
		}

		s, _ := db.GetSettings(ctx)
		if s.SelectedCategoryID != nil {
			t.Errorf("SelectedCategoryID = %q, want nil", *s.SelectedCategoryID)
		}
	})

	t.Run("rolls back when the transaction fails", func(t *testing.T) {
		db := newTestDB(t)
		books, _ := db.AddCategory(ctx, "Books", "📚", false)
		mustAddItem(t, db, "Dune", books.ID)

		// Make the item delete fail after the category delete has run.
		_, err := db.db.Exec(`CREATE TRIGGER fail_item_delete BEFORE DELETE ON wishlist_items
			BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
		if err != nil {
			t.Fatalf("creating trigger: %v", err)
		}

		err = db.DeleteCategory(ctx, books.ID)
		if !apperr.Is(err, apperr.KindTransaction) {
			t.Fatalf("DeleteCategory() error = %v, want transaction error", err)
		}

		if c, _ := db.GetCategory(ctx, books.ID); c == nil {
			t.Error("category removed despite failed transaction")
		}
		if items, _ := db.ListItems(ctx); len(items) != 1 {
			t.Errorf("len(items) = %d, want 1", len(items))
		}
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		db := newTestDB(t)
		n := &recordingNotifier{}
		db.SetNotifier(n)

		if err := db.DeleteCategory(ctx, "missing"); err != nil {
			t.Errorf("DeleteCategory(missing) error = %v", err)
		}
		if n.count() != 0 {
			t.Errorf("notifications = %d, want 0", n.count())
		}
	})
}

func TestSQLiteDatabase_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("order strictly increases in insertion order", func(t *testing.T) {
		db := newTestDB(t)

		var prev int64 = -1
		for i := 0; i < 5; i++ {
			it := mustAddItem(t, db, fmt.Sprintf("item %d", i), "books")
			if it.Order <= prev {
				t.Errorf("item %d order = %d, want > %d", i, it.Order, prev)
			}
			prev = it.Order
		}
	})

	t.Run("first item gets order 1", func(t *testing.T) {
		db := newTestDB(t)
		if it := mustAddItem(t, db, "Dune", "books"); it.Order != 1 {
			t.Errorf("Order = %d, want 1", it.Order)
		}
	})

	t.Run("order continues past deleted items", func(t *testing.T) {
		db := newTestDB(t)
		mustAddItem(t, db, "a", "books")
		b := mustAddItem(t, db, "b", "books")
		if err := db.DeleteItem(ctx, b.ID); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}
		if c := mustAddItem(t, db, "c", "books"); c.Order != 2 {
			t.Errorf("Order = %d, want 2", c.Order)
		}
	})

	t.Run("stamps timestamps and round-trips fields", func(t *testing.T) {
		db := newTestDB(t)
		blob := []byte{0x89, 0x50, 0x4e, 0x47, 0x00}

		it, err := db.AddItem(ctx, model.NewItem{
			Title:       "Camera",
			Description: model.Ptr("mirrorless"),
			Price:       model.Ptr(1299.5),
			Notes:       model.Ptr("wait for sale"),
			CategoryID:  "electronics",
			ImageBlob:   blob,
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if !it.CreatedAt.Equal(it.UpdatedAt) {
			t.Errorf("CreatedAt = %v, UpdatedAt = %v, want equal", it.CreatedAt, it.UpdatedAt)
		}

		got, err := db.GetItem(ctx, it.ID)
		if err != nil {
			t.Fatalf("GetItem() error = %v", err)
		}
		if got.Title != "Camera" || *got.Description != "mirrorless" || *got.Price != 1299.5 || *got.Notes != "wait for sale" {
			t.Errorf("GetItem() = %+v", got)
		}
		if string(got.ImageBlob) != string(blob) {
			t.Errorf("ImageBlob = %v, want %v", got.ImageBlob, blob)
		}
		if got.ImageURL != nil {
			t.Errorf("ImageURL = %q, want nil", *got.ImageURL)
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		db := newTestDB(t)
		_, err := db.AddItem(ctx, model.NewItem{Title: "", CategoryID: "books"})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("AddItem() error = %v, want validation error", err)
		}
		if ids := itemIDs(t, db); len(ids) != 0 {
			t.Errorf("items = %v, want none", ids)
		}
	})

	t.Run("rejects non-finite prices", func(t *testing.T) {
		db := newTestDB(t)
		for _, price := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
			_, err := db.AddItem(ctx, model.NewItem{Title: "Dune", CategoryID: "books", Price: model.Ptr(price)})
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("AddItem(price %v) error = %v, want validation error", price, err)
			}
		}
		if ids := itemIDs(t, db); len(ids) != 0 {
			t.Errorf("items = %v, want none", ids)
		}
	})
}

func TestSQLiteDatabase_UpdateItem(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it, err := db.AddItem(ctx, model.NewItem{
		Title:      "Dune",
		CategoryID: "books",
		ImageURL:   model.Ptr("https://example.com/dune.jpg"),
	})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	err = db.UpdateItem(ctx, it.ID, model.ItemPatch{Price: model.Ptr(12.0), ImageBlob: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}

	got, _ := db.GetItem(ctx, it.ID)
	if got.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", got.Title)
	}
	if got.Price == nil || *got.Price != 12.0 {
		t.Errorf("Price = %v, want 12", got.Price)
	}
	if got.ImageURL != nil || len(got.ImageBlob) != 3 {
		t.Errorf("image = (%v, %v), want blob only", got.ImageBlob, got.ImageURL)
	}
	if !got.UpdatedAt.After(it.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", got.UpdatedAt, it.UpdatedAt)
	}
	if !got.CreatedAt.Equal(it.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", it.CreatedAt, got.CreatedAt)
	}
	if got.Order != it.Order {
		t.Errorf("Order changed: %d -> %d", it.Order, got.Order)
	}

	if err := db.UpdateItem(ctx, "missing", model.ItemPatch{Title: model.Ptr("x")}); err != nil {
		t.Errorf("UpdateItem(missing) error = %v, want nil", err)
	}

	for _, price := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		err := db.UpdateItem(ctx, it.ID, model.ItemPatch{Price: model.Ptr(price)})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("UpdateItem(price %v) error = %v, want validation error", price, err)
		}
	}
	if got, _ := db.GetItem(ctx, it.ID); got.Price == nil || *got.Price != 12.0 {
		t.Errorf("Price after rejected updates = %v, want 12", got.Price)
	}
}

func TestSQLiteDatabase_DeleteItem(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it := mustAddItem(t, db, "Dune", "books")
	if err := db.DeleteItem(ctx, it.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if got, _ := db.GetItem(ctx, it.ID); got != nil {
		t.Error("item still present after delete")
	}
	if err := db.DeleteItem(ctx, it.ID); err != nil {
		t.Errorf("second DeleteItem() error = %v, want nil", err)
	}
}

func TestSQLiteDatabase_Reorder(t *testing.T) {
	ctx := context.Background()

	t.Run("reproduces the requested sequence", func(t *testing.T) {
		db := newTestDB(t)
		a := mustAddItem(t, db, "a", "books")
		b := mustAddItem(t, db, "b", "books")
		c := mustAddItem(t, db, "c", "books")

		want := []string{c.ID, a.ID, b.ID}
		if err := db.Reorder(ctx, want); err != nil {
			t.Fatalf("Reorder() error = %v", err)
		}

		got := itemIDs(t, db)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}

		items, _ := db.ListItems(ctx)
		for i, it := range items {
			if it.Order != int64(i) {
				t.Errorf("items[%d].Order = %d, want %d", i, it.Order, i)
			}
		}
	})

	t.Run("unlisted ids keep their order", func(t *testing.T) {
		db := newTestDB(t)
		a := mustAddItem(t, db, "a", "books") // order 1
		b := mustAddItem(t, db, "b", "books") // order 2
		c := mustAddItem(t, db, "c", "books") // order 3

		if err := db.Reorder(ctx, []string{c.ID, b.ID, "missing"}); err != nil {
			t.Fatalf("Reorder() error = %v", err)
		}

		got, _ := db.GetItem(ctx, a.ID)
		if got.Order != 1 {
			t.Errorf("unlisted item order = %d, want 1", got.Order)
		}
		got, _ = db.GetItem(ctx, b.ID)
		if got.Order != 1 {
			t.Errorf("b order = %d, want 1 (collides with a)", got.Order)
		}
	})
}

func TestSQLiteDatabase_Settings(t *testing.T) {
	ctx := context.Background()

	countSettings := func(t *testing.T, db *SQLiteDatabase) int {
		t.Helper()
		var n int
		if err := db.db.QueryRow("SELECT COUNT(*) FROM app_settings").Scan(&n); err != nil {
			t.Fatalf("counting settings: %v", err)
		}
		return n
	}

	t.Run("update on empty store creates one record", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.UpdateSettings(ctx, model.SettingsPatch{GridView: model.Ptr(model.GridTwo)}); err != nil {
			t.Fatalf("UpdateSettings() error = %v", err)
		}
		if n := countSettings(t, db); n != 1 {
			t.Fatalf("settings count = %d, want 1", n)
		}

		if err := db.UpdateSettings(ctx, model.SettingsPatch{Currency: model.Ptr("EUR")}); err != nil {
			t.Fatalf("second UpdateSettings() error = %v", err)
		}
		if n := countSettings(t, db); n != 1 {
			t.Fatalf("settings count = %d, want 1", n)
		}

		s, _ := db.GetSettings(ctx)
		if s.GridView != model.GridTwo || s.Currency != "EUR" || s.Theme != model.ThemeLight {
			t.Errorf("settings = %+v, want grid-2/EUR/light", s)
		}
	})

	t.Run("get creates defaults on first access", func(t *testing.T) {
		db := newTestDB(t)

		s, err := db.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings() error = %v", err)
		}
		if *s != *model.DefaultSettings() {
			t.Errorf("GetSettings() = %+v, want defaults", s)
		}
		if n := countSettings(t, db); n != 1 {
			t.Errorf("settings count = %d, want 1", n)
		}
	})

	t.Run("invalid patch leaves record unchanged", func(t *testing.T) {
		db := newTestDB(t)
		err := db.UpdateSettings(ctx, model.SettingsPatch{
			Currency: model.Ptr("EUR"),
			GridView: model.Ptr(model.GridView("mosaic")),
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("UpdateSettings() error = %v, want validation error", err)
		}
		if n := countSettings(t, db); n != 0 {
			t.Errorf("settings count = %d, want 0", n)
		}
	})
}

func TestSQLiteDatabase_ReplaceAllAndReset(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	mustAddItem(t, db, "Dune", "books")

	created := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)
	snap := &model.Snapshot{
		Categories: []*model.Category{{ID: "c", Name: "Imported", Emoji: "📦", CreatedAt: created}},
		Items: []*model.Item{{
			ID: "x", Title: "T", CategoryID: "c", ImageBlob: []byte{1, 2, 3},
			Order: 0, CreatedAt: created, UpdatedAt: created,
		}},
		Settings: &model.Settings{Theme: model.ThemeDark, GridView: model.GridThree, Currency: "JPY"},
	}

	n := &recordingNotifier{}
	db.SetNotifier(n)

	if err := db.ReplaceAll(ctx, snap); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if len(n.last()) != 3 {
		t.Errorf("notified collections = %v, want all three", n.last())
	}

	got, err := db.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(got.Categories) != 1 || got.Categories[0].ID != "c" {
		t.Errorf("categories = %v, want only c", got.Categories)
	}
	if len(got.Items) != 1 || string(got.Items[0].ImageBlob) != "\x01\x02\x03" {
		t.Errorf("items = %v, want x with 3-byte image", got.Items)
	}
	if got.Settings == nil || got.Settings.Currency != "JPY" {
		t.Errorf("settings = %+v, want JPY", got.Settings)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	got, _ = db.Snapshot(ctx)
	if len(got.Categories) != 4 || len(got.Items) != 0 {
		t.Errorf("after Reset: %d categories, %d items, want 4 and 0", len(got.Categories), len(got.Items))
	}
	if got.Settings == nil || *got.Settings != *model.DefaultSettings() {
		t.Errorf("after Reset settings = %+v, want defaults", got.Settings)
	}
}

func TestSQLiteDatabase_Notifications(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	n := &recordingNotifier{}
	db.SetNotifier(n)

	books, _ := db.AddCategory(ctx, "Books", "📚", false)
	if got := n.last(); len(got) != 1 || got[0] != model.Categories {
		t.Errorf("AddCategory notified %v, want [categories]", got)
	}

	mustAddItem(t, db, "Dune", books.ID)
	if got := n.last(); len(got) != 1 || got[0] != model.WishlistItems {
		t.Errorf("AddItem notified %v, want [wishlistItems]", got)
	}

	if err := db.DeleteCategory(ctx, books.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if got := n.last(); len(got) != 2 {
		t.Errorf("DeleteCategory notified %v, want categories and items", got)
	}

	before := n.count()
	if _, err := db.AddItem(ctx, model.NewItem{CategoryID: "books"}); err == nil {
		t.Fatal("AddItem() without title succeeded")
	}
	if n.count() != before {
		t.Error("failed write produced a notification")
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	mustAddItem(t, db, "Dune", "books")

	dest := filepath.Join(t.TempDir(), "copy.db")
	if err := db.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	copied, err := NewSQLiteDatabase(dest, nil, nil)
	if err != nil {
		t.Fatalf("opening copy: %v", err)
	}
	defer copied.Close()

	items, err := copied.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 || items[0].Title != "Dune" {
		t.Errorf("copied items = %v, want Dune", items)
	}

	if err := db.BackupTo(dest); err == nil {
		t.Error("BackupTo() over an existing file succeeded")
	}
}
