package testutil

import (
	"testing"

	"wishlist-go/internal/database"
	"wishlist-go/internal/live"
)

// NewTestDatabase creates a migrated in-memory store using the given clock
// and sequential IDs. The store is closed when the test completes.
func NewTestDatabase(t *testing.T, clock *StubClock) *database.SQLiteDatabase {
	t.Helper()

	if clock == nil {
		clock = FixedClock()
	}
	db, err := database.NewSQLiteDatabase(":memory:", clock, NewStubIDGenerator())
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewLiveDatabase is NewTestDatabase with change notifications routed to a
// fresh hub, ready to back a wishlist.Wishlist.
func NewLiveDatabase(t *testing.T, clock *StubClock) (*database.SQLiteDatabase, *live.Hub) {
	t.Helper()

	db := NewTestDatabase(t, clock)
	hub := live.NewHub(nil)
	db.SetNotifier(hub)
	return db, hub
}
