package wishlist

import (
	"strings"

	"wishlist-go/internal/model"
)

// Logger receives the facade's events. args alternate keys and values the
// way slog does. It also satisfies live.Logger, so one adapter serves the
// facade and its hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger drops every event. Open uses it when no logger is given.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// snapshotAttrs summarizes a whole-store document by counts only. Titles,
// notes and image bytes stay out of the log.
func snapshotAttrs(s *model.Snapshot) []any {
	images := 0
	for _, it := range s.Items {
		if it.HasImage() {
			images++
		}
	}
	return []any{"categories", len(s.Categories), "items", len(s.Items), "images", images}
}

// settingsAttrs names the preferences a patch touches.
func settingsAttrs(p model.SettingsPatch) []any {
	var fields []string
	if p.Theme != nil {
		fields = append(fields, "theme")
	}
	if p.GridView != nil {
		fields = append(fields, "gridView")
	}
	if p.SelectedCategoryID != nil {
		fields = append(fields, "selectedCategoryId")
	}
	if p.Currency != nil {
		fields = append(fields, "currency")
	}
	return []any{"settings", strings.Join(fields, ",")}
}
