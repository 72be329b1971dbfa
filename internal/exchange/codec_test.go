package exchange

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"wishlist-go/internal/apperr"
	"wishlist-go/internal/model"
)

var (
	testNow     = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	testCreated = time.Date(2023, 11, 2, 8, 15, 30, 123456789, time.UTC)
)

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Categories: []*model.Category{
			{ID: "books", Name: "Books", Emoji: "📚", IsDefault: true, CreatedAt: testCreated},
			{ID: "c2", Name: "Games", Emoji: "🎮", CreatedAt: testCreated.Add(time.Second)},
		},
		Items: []*model.Item{
			{
				ID: "i1", Title: "Dune", CategoryID: "books",
				Description: model.Ptr("hardcover"), Price: model.Ptr(19.99), Notes: model.Ptr(""),
				ImageBlob: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
				Order:     1, CreatedAt: testCreated, UpdatedAt: testCreated.Add(time.Hour),
			},
			{
				ID: "i2", Title: "Chess set", CategoryID: "c2",
				ImageURL: model.Ptr("https://example.com/chess.png"),
				Order:    2, CreatedAt: testCreated, UpdatedAt: testCreated,
			},
			{
				ID: "i3", Title: "Gift card", CategoryID: "c2", Price: model.Ptr(0.0),
				Order: 0, CreatedAt: testCreated, UpdatedAt: testCreated,
			},
		},
		Settings: &model.Settings{
			Theme:              model.ThemeDark,
			GridView:           model.GridThree,
			SelectedCategoryID: model.Ptr("c2"),
			Currency:           "EUR",
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	want := sampleSnapshot()

	data, err := Encode(want, testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(data, time.Time{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Shape(t *testing.T) {
	data, err := Encode(sampleSnapshot(), testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if raw["version"] != "1.0" {
		t.Errorf("version = %v, want 1.0", raw["version"])
	}
	if raw["exportDate"] != "2024-01-15T10:30:00.000Z" {
		t.Errorf("exportDate = %v", raw["exportDate"])
	}

	items := raw["wishlistItems"].([]any)
	first := items[0].(map[string]any)
	img, _ := first["imageBase64"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
		t.Errorf("imageBase64 = %q, want jpeg data URL", img)
	}
	if _, ok := first["imageUrl"]; ok {
		t.Error("item with blob also exported imageUrl")
	}
	for _, key := range []string{"imageBlob", "ImageBlob"} {
		if _, ok := first[key]; ok {
			t.Errorf("binary field %q leaked into document", key)
		}
	}

	second := items[1].(map[string]any)
	if _, ok := second["imageBase64"]; ok {
		t.Error("item with url exported imageBase64")
	}
	if _, ok := second["price"]; ok {
		t.Error("absent price was exported")
	}

	if settings := raw["appSettings"].([]any); len(settings) != 1 {
		t.Errorf("len(appSettings) = %d, want 1", len(settings))
	}
}

func TestEncode_EmptySnapshot(t *testing.T) {
	data, err := Encode(&model.Snapshot{}, testNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for _, key := range []string{`"categories": []`, `"wishlistItems": []`, `"appSettings": []`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("document missing %s:\n%s", key, data)
		}
	}
}

func TestDecode_ThreeByteImage(t *testing.T) {
	doc := `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","imageBase64":"AQID","order":0,` +
		`"createdAt":"2024-01-01T00:00:00.000Z","updatedAt":"2024-01-01T00:00:00.000Z"}]}`

	snap, err := Decode([]byte(doc), testNow)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(snap.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(snap.Items))
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, snap.Items[0].ImageBlob); diff != "" {
		t.Errorf("ImageBlob mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Categories) != 0 || snap.Settings != nil {
		t.Errorf("missing collections decoded as %v / %v, want empty", snap.Categories, snap.Settings)
	}
}

func TestDecode_Defaults(t *testing.T) {
	t.Run("timestamps fall back to exportDate", func(t *testing.T) {
		doc := `{"exportDate":"2023-06-01T12:00:00.000Z","categories":[{"id":"a","name":"A","emoji":"x"}]}`
		snap, err := Decode([]byte(doc), testNow)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		want := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
		if !snap.Categories[0].CreatedAt.Equal(want) {
			t.Errorf("CreatedAt = %v, want %v", snap.Categories[0].CreatedAt, want)
		}
	})

	t.Run("timestamps fall back to now", func(t *testing.T) {
		doc := `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c"}]}`
		snap, err := Decode([]byte(doc), testNow)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		it := snap.Items[0]
		if !it.CreatedAt.Equal(testNow) || !it.UpdatedAt.Equal(testNow) {
			t.Errorf("timestamps = %v / %v, want %v", it.CreatedAt, it.UpdatedAt, testNow)
		}
	})

	t.Run("settings fields default", func(t *testing.T) {
		doc := `{"appSettings":[{"theme":"dark"}]}`
		snap, err := Decode([]byte(doc), testNow)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		want := &model.Settings{Theme: model.ThemeDark, GridView: model.GridList, Currency: "USD"}
		if diff := cmp.Diff(want, snap.Settings); diff != "" {
			t.Errorf("settings mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `not json`},
		{"empty", ``},
		{"array document", `[]`},
		{"null document", `null`},
		{"truncated", `{"categories":[`},
		{"categories not an array", `{"categories":{}}`},
		{"wrong field type", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","order":"first"}]}`},
		{"category without id", `{"categories":[{"name":"A"}]}`},
		{"category without name", `{"categories":[{"id":"a","name":" "}]}`},
		{"duplicate category", `{"categories":[{"id":"a","name":"A"},{"id":"a","name":"B"}]}`},
		{"item without title", `{"wishlistItems":[{"id":"x","categoryId":"c"}]}`},
		{"item without category", `{"wishlistItems":[{"id":"x","title":"T"}]}`},
		{"negative price", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","price":-1}]}`},
		{"overflowing price", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","price":1e999}]}`},
		{"NaN price", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","price":NaN}]}`},
		{"bad base64", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","imageBase64":"%%%"}]}`},
		{"both images", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","imageBase64":"AQID","imageUrl":"u"}]}`},
		{"bad timestamp", `{"wishlistItems":[{"id":"x","title":"T","categoryId":"c","createdAt":"yesterday"}]}`},
		{"bad exportDate", `{"exportDate":"soon"}`},
		{"two settings records", `{"appSettings":[{"theme":"light"},{"theme":"dark"}]}`},
		{"unknown grid view", `{"appSettings":[{"gridView":"mosaic"}]}`},
		{"future major version", `{"version":"2.0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.doc), testNow)
			if !apperr.Is(err, apperr.KindImportFormat) {
				t.Errorf("Decode() error = %v, want import format error", err)
			}
			if snap != nil {
				t.Errorf("Decode() returned %+v alongside error", snap)
			}
		})
	}
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "data url", in: "data:image/png;base64,AQID", want: []byte{1, 2, 3}},
		{name: "bare", in: "AQID", want: []byte{1, 2, 3}},
		{name: "unpadded", in: "AQI", want: []byte{1, 2}},
		{name: "data url without payload", in: "data:image/png;base64", wantErr: true},
		{name: "non base64 data url", in: "data:text/plain,hello", wantErr: true},
		{name: "garbage", in: "!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeImage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != string(tt.want) {
				t.Errorf("DecodeImage() = %v, want %v", got, tt.want)
			}
		})
	}
}
