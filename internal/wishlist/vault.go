package wishlist

import (
	"context"
	"io"
	"time"
)

// Vault is a destination for export documents.
// Names are flat file names such as "wishlist-20240115T103000Z.json".
type Vault interface {
	// Name returns the configured name of the vault.
	Name() string

	// PutDocument stores a document under name, replacing any previous one.
	// size is the number of bytes that will be read from r.
	PutDocument(ctx context.Context, name string, r io.Reader, size int64) error

	// GetDocument writes the named document to w.
	GetDocument(ctx context.Context, name string, w io.Writer) error

	// ListDocuments returns the stored documents, oldest first.
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

// DocumentInfo describes a document held by a vault.
type DocumentInfo struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}
