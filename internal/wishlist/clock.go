package wishlist

import (
	"time"

	"github.com/google/uuid"
)

// Clock stamps createdAt, updatedAt and export dates.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in UTC truncated to milliseconds, the
// precision of the ISO-8601 stamps in browser-made export documents.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// IDGenerator names new categories and items. Seeded categories keep their
// fixed slugs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator issues random version 4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
