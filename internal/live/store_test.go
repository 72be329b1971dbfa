package live_test

import (
	"context"
	"testing"

	"wishlist-go/internal/database"
	"wishlist-go/internal/live"
	"wishlist-go/internal/model"
)

func TestWatch_StoreWrites(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewSQLiteDatabase(":memory:", nil, nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	defer db.Close()

	hub := live.NewHub(nil)
	db.SetNotifier(hub)

	itemsQuery := live.Query[[]*model.Item]{
		Name:        "items",
		Collections: []model.Collection{model.WishlistItems},
		Run:         db.ListItems,
	}
	settingsQuery := live.Query[*model.Settings]{
		Name:        "settings",
		Collections: []model.Collection{model.AppSettings},
		Run:         db.GetSettings,
	}

	var (
		items    []*model.Item
		settings *model.Settings
	)
	items, itemsSub, err := live.Watch(ctx, hub, itemsQuery, func(v []*model.Item) { items = v })
	if err != nil {
		t.Fatalf("Watch(items) error = %v", err)
	}
	defer itemsSub.Cancel()

	var settingsSub *live.Subscription
	// First access creates the settings record from inside the query.
	settings, settingsSub, err = live.Watch(ctx, hub, settingsQuery, func(v *model.Settings) { settings = v })
	if err != nil {
		t.Fatalf("Watch(settings) error = %v", err)
	}
	defer settingsSub.Cancel()

	if len(items) != 0 {
		t.Fatalf("initial items = %v, want none", items)
	}
	if settings == nil || settings.Currency != model.DefaultCurrency {
		t.Fatalf("initial settings = %+v, want defaults", settings)
	}

	books, err := db.AddCategory(ctx, "Books", "📚", false)
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}
	if _, err := db.AddItem(ctx, model.NewItem{Title: "Dune", CategoryID: books.ID}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if len(items) != 1 || items[0].Title != "Dune" {
		t.Fatalf("items after AddItem = %v, want Dune", items)
	}

	if err := db.UpdateSettings(ctx, model.SettingsPatch{Currency: model.Ptr("EUR")}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if settings.Currency != "EUR" {
		t.Errorf("settings.Currency = %q, want EUR", settings.Currency)
	}

	if err := db.DeleteCategory(ctx, books.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	for _, it := range items {
		if it.Title == "Dune" {
			t.Error("Dune still delivered after its category was deleted")
		}
	}
}
