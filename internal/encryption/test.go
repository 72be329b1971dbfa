package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"wishlist-go/internal/wishlist"
)

// testMagic marks documents written by TestEncryptor.
var testMagic = []byte("WLTEST\x00\x01")

// TestEncryptor is a deterministic, reversible stand-in for age. It prefixes
// documents with a fixed marker so encrypted output never equals plaintext.
// Unlock accepts only the passphrase given to Setup, or any passphrase when
// Setup was never called.
type TestEncryptor struct {
	passphrase string
}

var _ wishlist.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying document: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (wishlist.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, errors.New("incorrect passphrase")
	}
	return testDecryptor{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

type testDecryptor struct{}

func (testDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	marker := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, marker); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(marker, testMagic) {
		return errors.New("document was not written by the test encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying document: %w", err)
	}
	return nil
}
