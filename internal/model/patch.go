package model

import (
	"math"
	"strings"

	"wishlist-go/internal/apperr"
)

// NewItem holds the caller-supplied fields of an item being created.
// ID, order and timestamps are assigned by the store.
type NewItem struct {
	Title       string
	Description *string
	Price       *float64
	Notes       *string
	CategoryID  string
	ImageBlob   []byte
	ImageURL    *string
}

// Validate checks the fields required on create.
func (n *NewItem) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return apperr.Validation("item title is required")
	}
	if n.CategoryID == "" {
		return apperr.Validation("item category is required")
	}
	if err := CheckPrice(n.Price); err != nil {
		return err
	}
	if len(n.ImageBlob) > 0 && n.ImageURL != nil {
		return apperr.Validation("item may carry an image blob or an image url, not both")
	}
	return nil
}

// CheckPrice rejects negative and non-finite prices. A nil price is valid.
func CheckPrice(price *float64) error {
	if price == nil {
		return nil
	}
	if math.IsNaN(*price) || math.IsInf(*price, 0) {
		return apperr.Validation("item price must be a finite number, got %v", *price)
	}
	if *price < 0 {
		return apperr.Validation("item price must not be negative, got %v", *price)
	}
	return nil
}

// CategoryPatch lists the category fields to change. Nil fields are kept.
type CategoryPatch struct {
	Name  *string
	Emoji *string
}

// Apply merges the patch over c.
func (p CategoryPatch) Apply(c *Category) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return apperr.Validation("category name is required")
		}
		c.Name = *p.Name
	}
	if p.Emoji != nil {
		c.Emoji = *p.Emoji
	}
	return nil
}

// ItemPatch lists the item fields to change. Nil fields are kept; the
// Clear* flags remove an optional value. Setting ImageBlob replaces any
// image URL and setting ImageURL replaces any blob.
type ItemPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Notes       *string
	CategoryID  *string
	ImageBlob   []byte
	ImageURL    *string

	ClearDescription bool
	ClearPrice       bool
	ClearNotes       bool
	ClearImage       bool
}

// Apply merges the patch over it. UpdatedAt is left to the caller.
func (p ItemPatch) Apply(it *Item) error {
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return apperr.Validation("item title is required")
		}
		it.Title = *p.Title
	}
	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			return apperr.Validation("item category is required")
		}
		it.CategoryID = *p.CategoryID
	}
	if err := CheckPrice(p.Price); err != nil {
		return err
	}
	if len(p.ImageBlob) > 0 && p.ImageURL != nil {
		return apperr.Validation("item may carry an image blob or an image url, not both")
	}

	switch {
	case p.ClearDescription:
		it.Description = nil
	case p.Description != nil:
		it.Description = p.Description
	}
	switch {
	case p.ClearPrice:
		it.Price = nil
	case p.Price != nil:
		it.Price = p.Price
	}
	switch {
	case p.ClearNotes:
		it.Notes = nil
	case p.Notes != nil:
		it.Notes = p.Notes
	}
	switch {
	case p.ClearImage:
		it.ImageBlob, it.ImageURL = nil, nil
	case len(p.ImageBlob) > 0:
		it.ImageBlob, it.ImageURL = p.ImageBlob, nil
	case p.ImageURL != nil:
		it.ImageBlob, it.ImageURL = nil, p.ImageURL
	}
	return nil
}

// SettingsPatch lists the settings fields to change. Nil fields are kept.
type SettingsPatch struct {
	Theme              *Theme
	GridView           *GridView
	SelectedCategoryID *string // empty string clears the selection
	Currency           *string
}

// Apply merges the patch over s.
func (p SettingsPatch) Apply(s *Settings) error {
	if p.Theme != nil {
		if !p.Theme.Valid() {
			return apperr.Validation("unknown theme %q", *p.Theme)
		}
		s.Theme = *p.Theme
	}
	if p.GridView != nil {
		if !p.GridView.Valid() {
			return apperr.Validation("unknown grid view %q", *p.GridView)
		}
		s.GridView = *p.GridView
	}
	if p.SelectedCategoryID != nil {
		if *p.SelectedCategoryID == "" {
			s.SelectedCategoryID = nil
		} else {
			id := *p.SelectedCategoryID
			s.SelectedCategoryID = &id
		}
	}
	if p.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*p.Currency))
		if code == "" {
			return apperr.Validation("currency code is required")
		}
		s.Currency = code
	}
	return nil
}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Valid reports whether g is a known grid view.
func (g GridView) Valid() bool {
	switch g {
	case GridList, GridTwo, GridThree:
		return true
	}
	return false
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
