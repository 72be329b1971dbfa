package testutil

import (
	"wishlist-go/internal/encryption"
	"wishlist-go/internal/wishlist"
)

// NewTestEncryptor returns a deterministic encryptor that needs no keys.
func NewTestEncryptor() wishlist.Encryptor {
	return encryption.NewTestEncryptor()
}
