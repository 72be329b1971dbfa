package wishlist

import (
	"context"

	"wishlist-go/internal/model"
)

// Store is the persistent store behind the wishlist.
// Every mutating method commits atomically or not at all. Update and
// delete of an absent id are silent no-ops.
type Store interface {
	// Initialize seeds the default categories when none exist and the
	// default settings record when it is absent.
	Initialize(ctx context.Context) error

	// Category operations

	// AddCategory creates a category. Fails with a validation error when name is empty.
	AddCategory(ctx context.Context, name, emoji string, isDefault bool) (*model.Category, error)

	// UpdateCategory merges patch over the category with the given id.
	UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) error

	// DeleteCategory removes the category and every item referencing it in one transaction.
	DeleteCategory(ctx context.Context, id string) error

	// GetCategory returns the category or nil if absent.
	GetCategory(ctx context.Context, id string) (*model.Category, error)

	// ListCategories returns all categories ordered by creation time.
	ListCategories(ctx context.Context) ([]*model.Category, error)

	// Item operations

	// AddItem creates an item positioned after every existing item.
	AddItem(ctx context.Context, item model.NewItem) (*model.Item, error)

	// UpdateItem merges patch over the item and refreshes its updatedAt.
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error

	// DeleteItem removes the item.
	DeleteItem(ctx context.Context, id string) error

	// GetItem returns the item or nil if absent.
	GetItem(ctx context.Context, id string) (*model.Item, error)

	// ListItems returns all items ordered by their order value.
	ListItems(ctx context.Context) ([]*model.Item, error)

	// Reorder assigns order = index to each listed id in one transaction.
	// Ids not listed keep their previous order value.
	Reorder(ctx context.Context, ids []string) error

	// Settings operations

	// GetSettings returns the settings record, creating it with defaults if absent.
	GetSettings(ctx context.Context) (*model.Settings, error)

	// UpdateSettings merges patch over the settings record, creating it if absent.
	UpdateSettings(ctx context.Context, patch model.SettingsPatch) error

	// Whole-store operations

	// Snapshot reads all three collections consistently.
	Snapshot(ctx context.Context) (*model.Snapshot, error)

	// ReplaceAll clears all collections and inserts snap verbatim in one transaction.
	ReplaceAll(ctx context.Context, snap *model.Snapshot) error

	// Reset clears all collections and reseeds the defaults in one transaction.
	Reset(ctx context.Context) error

	// Close closes the underlying storage.
	Close() error
}

// Notifier is told which collections a committed write touched.
type Notifier interface {
	Notify(ctx context.Context, collections ...model.Collection)
}

// NopNotifier discards change notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ...model.Collection) {}
