package encryption

import (
	"fmt"

	"wishlist-go/internal/config"
	"wishlist-go/internal/wishlist"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. Type "none" returns a nil Encryptor: backups are stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (wishlist.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
