// Package exchange converts store snapshots to and from the portable export
// document.
package exchange

// Version is written into every exported document. Documents whose major
// version differs are rejected on import.
const Version = "1.0"

// Document is the JSON export document.
type Document struct {
	Categories    []CategoryRecord `json:"categories"`
	WishlistItems []ItemRecord     `json:"wishlistItems"`
	AppSettings   []SettingsRecord `json:"appSettings"`
	ExportDate    string           `json:"exportDate"`
	Version       string           `json:"version"`
}

type CategoryRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt"`
}

// ItemRecord carries at most one of ImageBase64 and ImageURL.
// ImageBase64 holds a data URL on export; bare base64 is accepted on import.
type ItemRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	CategoryID  string   `json:"categoryId"`
	ImageBase64 *string  `json:"imageBase64,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	Order       int64    `json:"order"`
}

type SettingsRecord struct {
	Theme              string  `json:"theme"`
	GridView           string  `json:"gridView"`
	SelectedCategoryID *string `json:"selectedCategoryId,omitempty"`
	Currency           string  `json:"currency"`
}
