package database

import (
	"fmt"
	"os"
	"path/filepath"

	"wishlist-go/internal/config"
	"wishlist-go/internal/wishlist"
)

// DatabaseFile is the file name of the store inside data_dir.
const DatabaseFile = "wishlist.db"

// NewDatabaseFromConfig creates a store implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock wishlist.Clock, idgen wishlist.IDGenerator) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFile), clock, idgen)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock, idgen)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
