package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wishlist-go/internal/config"
	"wishlist-go/internal/database"
	"wishlist-go/internal/encryption"
	"wishlist-go/internal/live"
	"wishlist-go/internal/vault"
	"wishlist-go/internal/wishlist"
)

// previousStateFile holds the copy of the database taken before a
// destructive command replaces its contents.
const previousStateFile = "wishlist.db.prev"

// WLApp is the application layer between the CLI and the Wishlist facade.
// It constructs all dependencies from config, exposes the commands that need
// more than one component (files, vaults, keys) and manages the lifecycle on
// Close.
type WLApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	hub       *live.Hub
	list      *wishlist.Wishlist
	encryptor wishlist.Encryptor
	logger    *slog.Logger
	op        *Operation
	logFile   *os.File
}

// Options tune NewWLApp. The zero value logs to the log file and stderr
// and uses the real clock.
type Options struct {
	Console io.Writer // defaults to os.Stderr
	Quiet   bool      // log to the file only
	Clock   wishlist.Clock
}

// NewWLApp creates a fully wired WLApp from the given config.
// operation identifies the CLI command being run (e.g. "AddItem", "Export").
// The caller must call Close when done.
func NewWLApp(ctx context.Context, cfg *config.Config, operation, parameters string, opts Options) (*WLApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = wishlist.RealClock{}
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Quiet {
		console = nil
	}

	op := NewOperation(operation, parameters, clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, clock, wishlist.UUIDGenerator{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	hub := live.NewHub(newComponentLogger(logger, "live"))
	db.SetNotifier(hub)

	list, err := wishlist.Open(ctx, db, hub, wishlist.WithLogger(newComponentLogger(logger, "wishlist")), wishlist.WithClock(clock))
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("opening wishlist: %w", err)
	}

	logger.Debug("operation started", "parameters", op.Parameters)

	return &WLApp{
		cfg:       cfg,
		db:        db,
		hub:       hub,
		list:      list,
		encryptor: enc,
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// Wishlist returns the facade for views and single-record operations.
func (a *WLApp) Wishlist() *wishlist.Wishlist {
	return a.list
}

// Config returns the configuration the app was built from.
func (a *WLApp) Config() *config.Config {
	return a.cfg
}

// Fail records err as the outcome of the operation.
func (a *WLApp) Fail(err error) {
	a.op.Fail(err)
	if err != nil {
		a.logger.Error("operation failed", "error", err)
	}
}

// Export writes the export document to path. An empty path writes a
// timestamped file into the configured export directory. Returns the path
// written.
func (a *WLApp) Export(ctx context.Context, path string) (string, error) {
	data, err := a.list.Export(ctx)
	if err != nil {
		return "", err
	}

	if path == "" {
		if a.cfg.Export.Dir == "" {
			return "", errors.New("no output path given and export.dir is not configured")
		}
		if err := os.MkdirAll(a.cfg.Export.Dir, 0755); err != nil {
			return "", fmt.Errorf("creating export directory: %w", err)
		}
		path = filepath.Join(a.cfg.Export.Dir, a.list.BackupName(false))
	}

	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Import replaces the wishlist with the document at path. The database is
// copied aside first.
func (a *WLApp) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := a.keepPreviousState(); err != nil {
		return err
	}
	return a.list.Import(ctx, data)
}

// ClearAll empties the wishlist and reseeds the defaults. The database is
// copied aside first.
func (a *WLApp) ClearAll(ctx context.Context) error {
	if err := a.keepPreviousState(); err != nil {
		return err
	}
	return a.list.ClearAll(ctx)
}

// Backup stores an export document in the named vault, encrypted unless
// encryption is disabled. An empty name selects the default vault.
func (a *WLApp) Backup(ctx context.Context, vaultName string) (string, error) {
	v, err := a.vault(ctx, vaultName)
	if err != nil {
		return "", err
	}
	if a.encryptor != nil && !a.encryptor.IsConfigured() {
		return "", errors.New("encryption keys not found: run `wl keys init` first")
	}
	return a.list.Backup(ctx, v, a.encryptor)
}

// Restore replaces the wishlist with the named document from a vault.
// passphrase unlocks the private key and is only used for encrypted
// documents.
func (a *WLApp) Restore(ctx context.Context, vaultName, name, passphrase string) error {
	v, err := a.vault(ctx, vaultName)
	if err != nil {
		return err
	}

	var dec wishlist.DecryptionContext
	if wishlist.IsEncryptedBackup(name) {
		if a.encryptor == nil {
			return fmt.Errorf("document %s is encrypted but encryption is disabled", name)
		}
		if dec, err = a.encryptor.Unlock(passphrase); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}

	if err := a.keepPreviousState(); err != nil {
		return err
	}
	return a.list.Restore(ctx, v, name, dec)
}

// Backups lists the export documents in the named vault.
func (a *WLApp) Backups(ctx context.Context, vaultName string) ([]wishlist.DocumentInfo, error) {
	v, err := a.vault(ctx, vaultName)
	if err != nil {
		return nil, err
	}
	return a.list.Backups(ctx, v)
}

// NeedsPassphrase reports whether restoring name requires unlocking keys.
func (a *WLApp) NeedsPassphrase(name string) bool {
	return a.encryptor != nil && wishlist.IsEncryptedBackup(name)
}

func (a *WLApp) vault(ctx context.Context, name string) (wishlist.Vault, error) {
	vc, err := a.cfg.Vault(name)
	if err != nil {
		return nil, err
	}
	v, err := vault.NewVaultFromConfig(ctx, vc)
	if err != nil {
		return nil, fmt.Errorf("creating vault %s: %w", vc.Name, err)
	}
	return v, nil
}

// keepPreviousState copies the database file next to itself. In-memory
// databases have nothing to keep.
func (a *WLApp) keepPreviousState() error {
	path := a.db.Path()
	if path == ":memory:" {
		return nil
	}
	dest := filepath.Join(filepath.Dir(path), previousStateFile)
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old copy: %w", err)
	}
	if err := a.db.BackupTo(dest); err != nil {
		return err
	}
	a.logger.Info("kept previous state", "path", dest)
	return nil
}

// Close stops the facade, closes the database and finalizes the operation
// log. The first error encountered is returned.
func (a *WLApp) Close() error {
	var firstErr error

	if err := a.list.Close(); err != nil {
		firstErr = fmt.Errorf("closing wishlist: %w", err)
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Debug("operation finished",
		"status", a.op.Status,
		"duration", time.Since(a.op.StartedAt).Round(time.Millisecond))

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// SetupKeys generates the encryption key pair protected by passphrase.
func SetupKeys(cfg config.EncryptionConfig, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return err
	}
	if enc == nil {
		return errors.New("encryption is disabled in the config")
	}
	return enc.Setup(passphrase)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wl-export-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving export into place: %w", err)
	}
	return nil
}
