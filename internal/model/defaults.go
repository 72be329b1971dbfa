package model

import "time"

// DefaultCurrency is used when no currency has been chosen.
const DefaultCurrency = "USD"

// DefaultSettings returns the settings record created on first access.
func DefaultSettings() *Settings {
	return &Settings{
		Theme:    ThemeLight,
		GridView: GridList,
		Currency: DefaultCurrency,
	}
}

var defaultCategories = []struct {
	id, name, emoji string
}{
	{"electronics", "Electronics", "📱"},
	{"fashion", "Fashion", "👗"},
	{"home", "Home & Garden", "🏠"},
	{"books", "Books", "📚"},
}

// DefaultCategories returns the categories seeded into an empty store.
// IDs are fixed so exported documents from different installs agree.
// CreatedAt is staggered by a millisecond so ordering by creation time
// keeps the seed order.
func DefaultCategories(now time.Time) []*Category {
	cats := make([]*Category, len(defaultCategories))
	for i, d := range defaultCategories {
		cats[i] = &Category{
			ID:        d.id,
			Name:      d.name,
			Emoji:     d.emoji,
			IsDefault: true,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
	}
	return cats
}
