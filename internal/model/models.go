package model

import "time"

// Collection names one of the persisted collections. Writes report the
// collections they touched so live queries can be refreshed.
type Collection string

const (
	Categories    Collection = "categories"
	WishlistItems Collection = "wishlistItems"
	AppSettings   Collection = "appSettings"
)

// AllCollections lists every persisted collection.
var AllCollections = []Collection{Categories, WishlistItems, AppSettings}

// Category is a named, iconized grouping for wishlist items.
type Category struct {
	ID        string
	Name      string
	Emoji     string
	IsDefault bool
	CreatedAt time.Time
}

// Item is one desired thing on the wishlist.
// At most one of ImageBlob and ImageURL is set.
type Item struct {
	ID          string
	Title       string
	Description *string
	Price       *float64 // currency-agnostic; currency is a display concern
	Notes       *string
	CategoryID  string // application-level reference, not enforced by the engine
	ImageBlob   []byte
	ImageURL    *string
	Order       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasImage reports whether the item carries either image representation.
func (i *Item) HasImage() bool {
	return len(i.ImageBlob) > 0 || i.ImageURL != nil
}

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// GridView is the item layout preference.
type GridView string

const (
	GridList  GridView = "list"
	GridTwo   GridView = "grid-2"
	GridThree GridView = "grid-3"
)

// Settings is the single persisted preferences record.
type Settings struct {
	Theme              Theme
	GridView           GridView
	SelectedCategoryID *string
	Currency           string
}

// Snapshot holds the full contents of the store at one point in time.
type Snapshot struct {
	Categories []*Category
	Items      []*Item
	Settings   *Settings // nil when no settings record exists
}
