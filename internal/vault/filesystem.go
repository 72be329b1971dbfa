package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"wishlist-go/internal/wishlist"
)

// FileSystemVault stores documents as files in a directory structure:
//
//	<root>/
//	  documents/
//	    wishlist-20240115T103000Z.json
//	    wishlist-20240116T090000Z.json.age
type FileSystemVault struct {
	name         string
	root         string
	documentsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	documentsDir := filepath.Join(root, "documents")
	if err := os.MkdirAll(documentsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		documentsDir: documentsDir,
	}, nil
}

func (v *FileSystemVault) Name() string {
	return v.name
}

// PutDocument writes the document atomically, replacing any previous one.
func (v *FileSystemVault) PutDocument(_ context.Context, name string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	return v.writeFile(filepath.Join(v.documentsDir, name), r, size)
}

func (v *FileSystemVault) GetDocument(_ context.Context, name string, w io.Writer) error {
	if err := checkName(name); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(v.documentsDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("document not found: %s", name)
		}
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	return nil
}

// ListDocuments returns the stored documents ordered by name. Temp files
// from interrupted writes are skipped.
func (v *FileSystemVault) ListDocuments(context.Context) ([]wishlist.DocumentInfo, error) {
	entries, err := os.ReadDir(v.documentsDir)
	if err != nil {
		return nil, fmt.Errorf("reading documents directory: %w", err)
	}

	docs := make([]wishlist.DocumentInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || checkName(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		docs = append(docs, wishlist.DocumentInfo{
			Name:       e.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup(context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	info, err = os.Stat(v.documentsDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.documentsDir)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements wishlist.Vault interface
var _ wishlist.Vault = (*FileSystemVault)(nil)
