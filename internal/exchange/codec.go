package exchange

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wishlist-go/internal/apperr"
	"wishlist-go/internal/model"
)

// exportDateLayout matches what browsers produce for ISO-8601 dates.
const exportDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Encode renders snap as an indented export document stamped with exportDate.
// Image blobs are written as data URLs.
func Encode(snap *model.Snapshot, exportDate time.Time) ([]byte, error) {
	doc := Document{
		Categories:    make([]CategoryRecord, 0, len(snap.Categories)),
		WishlistItems: make([]ItemRecord, 0, len(snap.Items)),
		AppSettings:   []SettingsRecord{},
		ExportDate:    exportDate.UTC().Format(exportDateLayout),
		Version:       Version,
	}

	for _, c := range snap.Categories {
		doc.Categories = append(doc.Categories, CategoryRecord{
			ID:        c.ID,
			Name:      c.Name,
			Emoji:     c.Emoji,
			IsDefault: c.IsDefault,
			CreatedAt: formatTimestamp(c.CreatedAt),
		})
	}

	for _, it := range snap.Items {
		rec := ItemRecord{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Price:       it.Price,
			Notes:       it.Notes,
			CategoryID:  it.CategoryID,
			ImageURL:    it.ImageURL,
			CreatedAt:   formatTimestamp(it.CreatedAt),
			UpdatedAt:   formatTimestamp(it.UpdatedAt),
			Order:       it.Order,
		}
		if len(it.ImageBlob) > 0 {
			s := EncodeImage(it.ImageBlob)
			rec.ImageBase64 = &s
			rec.ImageURL = nil
		}
		doc.WishlistItems = append(doc.WishlistItems, rec)
	}

	if s := snap.Settings; s != nil {
		doc.AppSettings = append(doc.AppSettings, SettingsRecord{
			Theme:              string(s.Theme),
			GridView:           string(s.GridView),
			SelectedCategoryID: s.SelectedCategoryID,
			Currency:           s.Currency,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export document: %w", err)
	}
	return data, nil
}

// Decode parses and validates an export document. Nothing is returned
// unless the whole document is valid; every failure is an ImportFormatError.
// Missing collections decode as empty. Missing timestamps default to the
// document's exportDate, or to now when that is absent too.
func Decode(data []byte, now time.Time) (*model.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, apperr.ImportFormat("document is not valid JSON", nil)
		}
		return nil, apperr.ImportFormat("document must be a JSON object", nil)
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, apperr.ImportFormat("malformed document", describeJSONError(err))
	}

	if doc.Version != "" && majorVersion(doc.Version) != majorVersion(Version) {
		return nil, apperr.ImportFormat(fmt.Sprintf("unsupported document version %q", doc.Version), nil)
	}

	fallback := now.UTC()
	if doc.ExportDate != "" {
		t, err := parseTimestamp(doc.ExportDate)
		if err != nil {
			return nil, apperr.ImportFormat("invalid exportDate", err)
		}
		fallback = t
	}

	snap := &model.Snapshot{
		Categories: make([]*model.Category, 0, len(doc.Categories)),
		Items:      make([]*model.Item, 0, len(doc.WishlistItems)),
	}

	seen := make(map[string]bool, len(doc.Categories))
	for i, rec := range doc.Categories {
		c, err := decodeCategory(rec, fallback)
		if err != nil {
			return nil, apperr.ImportFormat(fmt.Sprintf("categories[%d]", i), err)
		}
		if seen[c.ID] {
			return nil, apperr.ImportFormat(fmt.Sprintf("categories[%d]", i), fmt.Errorf("duplicate id %q", c.ID))
		}
		seen[c.ID] = true
		snap.Categories = append(snap.Categories, c)
	}

	seen = make(map[string]bool, len(doc.WishlistItems))
	for i, rec := range doc.WishlistItems {
		it, err := decodeItem(rec, fallback)
		if err != nil {
			return nil, apperr.ImportFormat(fmt.Sprintf("wishlistItems[%d]", i), err)
		}
		if seen[it.ID] {
			return nil, apperr.ImportFormat(fmt.Sprintf("wishlistItems[%d]", i), fmt.Errorf("duplicate id %q", it.ID))
		}
		seen[it.ID] = true
		snap.Items = append(snap.Items, it)
	}

	switch len(doc.AppSettings) {
	case 0:
	case 1:
		s, err := decodeSettings(doc.AppSettings[0])
		if err != nil {
			return nil, apperr.ImportFormat("appSettings[0]", err)
		}
		snap.Settings = s
	default:
		return nil, apperr.ImportFormat(
			fmt.Sprintf("appSettings holds %d records, want at most 1", len(doc.AppSettings)), nil)
	}

	return snap, nil
}

func decodeCategory(rec CategoryRecord, fallback time.Time) (*model.Category, error) {
	if rec.ID == "" {
		return nil, errors.New("id is required")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return nil, errors.New("name is required")
	}
	createdAt, err := timestampOr(rec.CreatedAt, fallback)
	if err != nil {
		return nil, fmt.Errorf("createdAt: %w", err)
	}
	return &model.Category{
		ID:        rec.ID,
		Name:      rec.Name,
		Emoji:     rec.Emoji,
		IsDefault: rec.IsDefault,
		CreatedAt: createdAt,
	}, nil
}

func decodeItem(rec ItemRecord, fallback time.Time) (*model.Item, error) {
	if rec.ID == "" {
		return nil, errors.New("id is required")
	}
	if strings.TrimSpace(rec.Title) == "" {
		return nil, errors.New("title is required")
	}
	if rec.CategoryID == "" {
		return nil, errors.New("categoryId is required")
	}
	if err := model.CheckPrice(rec.Price); err != nil {
		return nil, err
	}

	it := &model.Item{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Price:       rec.Price,
		Notes:       rec.Notes,
		CategoryID:  rec.CategoryID,
		ImageURL:    rec.ImageURL,
		Order:       rec.Order,
	}

	if rec.ImageBase64 != nil && *rec.ImageBase64 != "" {
		if rec.ImageURL != nil {
			return nil, errors.New("item carries both imageBase64 and imageUrl")
		}
		blob, err := DecodeImage(*rec.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("imageBase64: %w", err)
		}
		it.ImageBlob = blob
	}

	var err error
	if it.CreatedAt, err = timestampOr(rec.CreatedAt, fallback); err != nil {
		return nil, fmt.Errorf("createdAt: %w", err)
	}
	if it.UpdatedAt, err = timestampOr(rec.UpdatedAt, it.CreatedAt); err != nil {
		return nil, fmt.Errorf("updatedAt: %w", err)
	}
	return it, nil
}

func decodeSettings(rec SettingsRecord) (*model.Settings, error) {
	s := model.DefaultSettings()
	patch := model.SettingsPatch{}
	if rec.Theme != "" {
		patch.Theme = model.Ptr(model.Theme(rec.Theme))
	}
	if rec.GridView != "" {
		patch.GridView = model.Ptr(model.GridView(rec.GridView))
	}
	if rec.Currency != "" {
		patch.Currency = &rec.Currency
	}
	if rec.SelectedCategoryID != nil {
		patch.SelectedCategoryID = rec.SelectedCategoryID
	}
	if err := patch.Apply(s); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeImage returns blob as a data URL with a sniffed media type.
func EncodeImage(blob []byte) string {
	return "data:" + http.DetectContentType(blob) + ";base64," + base64.StdEncoding.EncodeToString(blob)
}

// DecodeImage accepts a base64 data URL or bare base64 and returns the bytes.
func DecodeImage(s string) ([]byte, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, data, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, errors.New("data URL has no payload")
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("data URL is not base64 encoded")
		}
		payload = data
	}

	blob, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	return blob, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func timestampOr(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return parseTimestamp(s)
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}

func describeJSONError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("field %q: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return err
}
