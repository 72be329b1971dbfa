package wishlist

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

const (
	backupPrefix     = "wishlist-"
	backupExt        = ".json"
	encryptedExt     = ".age"
	backupTimeLayout = "20060102T150405Z"
)

// BackupName returns the document name for an export taken at the clock's
// current time. Encrypted documents get an extra ".age" suffix.
func (w *Wishlist) BackupName(encrypted bool) string {
	name := backupPrefix + w.clock.Now().UTC().Format(backupTimeLayout) + backupExt
	if encrypted {
		name += encryptedExt
	}
	return name
}

// IsEncryptedBackup reports whether name was written by an encrypted backup.
func IsEncryptedBackup(name string) bool {
	return strings.HasSuffix(name, encryptedExt)
}

// Backup exports the store and writes the document to v, encrypted with enc
// when enc is not nil. It returns the stored document's name.
func (w *Wishlist) Backup(ctx context.Context, v Vault, enc Encryptor) (string, error) {
	data, err := w.Export(ctx)
	if err != nil {
		return "", err
	}

	name := w.BackupName(enc != nil)
	if enc != nil {
		var buf bytes.Buffer
		if err := enc.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return "", fmt.Errorf("encrypting export: %w", err)
		}
		data = buf.Bytes()
	}

	if err := v.PutDocument(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("storing %s in vault %s: %w", name, v.Name(), err)
	}

	w.logger.Info("backup stored", "vault", v.Name(), "document", name, "bytes", len(data))
	return name, nil
}

// Restore reads the named document from v and imports it. dec is required
// for encrypted documents and ignored otherwise.
func (w *Wishlist) Restore(ctx context.Context, v Vault, name string, dec DecryptionContext) error {
	var buf bytes.Buffer
	if err := v.GetDocument(ctx, name, &buf); err != nil {
		return fmt.Errorf("reading %s from vault %s: %w", name, v.Name(), err)
	}

	data := buf.Bytes()
	if IsEncryptedBackup(name) {
		if dec == nil {
			return fmt.Errorf("document %s is encrypted; unlock the private key first", name)
		}
		var plain bytes.Buffer
		if err := dec.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return fmt.Errorf("decrypting %s: %w", name, err)
		}
		data = plain.Bytes()
	}

	if err := w.Import(ctx, data); err != nil {
		return err
	}
	w.logger.Info("backup restored", "vault", v.Name(), "document", name)
	return nil
}

// Backups lists the export documents held by v.
func (w *Wishlist) Backups(ctx context.Context, v Vault) ([]DocumentInfo, error) {
	docs, err := v.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing vault %s: %w", v.Name(), err)
	}
	out := docs[:0]
	for _, d := range docs {
		if strings.HasPrefix(d.Name, backupPrefix) {
			out = append(out, d)
		}
	}
	return out, nil
}
