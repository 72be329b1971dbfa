package testutil

import (
	"wishlist-go/internal/vault"
	"wishlist-go/internal/wishlist"
)

// NewTestVault returns an empty in-memory vault.
func NewTestVault(name string) wishlist.Vault {
	return vault.NewMemoryVault(name)
}
