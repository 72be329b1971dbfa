package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"wishlist-go/internal/wishlist"
)

type memoryDocument struct {
	data       []byte
	modifiedAt time.Time
}

// MemoryVault keeps documents in memory. It is useful for tests and for the
// "memory" vault type. This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	documents map[string]memoryDocument
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		documents: make(map[string]memoryDocument),
	}
}

func (m *MemoryVault) Name() string {
	return m.name
}

// PutDocument stores the document, replacing any previous one with that name.
func (m *MemoryVault) PutDocument(_ context.Context, name string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[name] = memoryDocument{data: data, modifiedAt: time.Now().UTC()}
	return nil
}

func (m *MemoryVault) GetDocument(_ context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[name]
	if !ok {
		return fmt.Errorf("document not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(doc.data)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// ListDocuments returns the stored documents ordered by name. Backup names
// embed their timestamp, so name order is also age order.
func (m *MemoryVault) ListDocuments(context.Context) ([]wishlist.DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]wishlist.DocumentInfo, 0, len(m.documents))
	for name, doc := range m.documents {
		docs = append(docs, wishlist.DocumentInfo{
			Name:       name,
			Size:       int64(len(doc.data)),
			ModifiedAt: doc.modifiedAt,
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements wishlist.Vault interface
var _ wishlist.Vault = (*MemoryVault)(nil)
