package app

import (
	"fmt"
	"os"
	"path/filepath"

	"wishlist-go/internal/config"
)

// Paths locates wl's files on this machine.
type Paths struct {
	ConfigPath string // wl.toml
	BaseDir    string // store, keys, exports, vault and logs live below it
}

// DefaultPaths resolves Paths in this order:
//   - config: WL_CONFIG_PATH, then $XDG_CONFIG_HOME/wl.toml, then ~/.config/wl.toml
//   - data:   WL_HOME, then $XDG_DATA_HOME/wl, then ~/.local/share/wl
func DefaultPaths() (Paths, error) {
	configPath, err := resolveDir("WL_CONFIG_PATH", "XDG_CONFIG_HOME", "wl.toml", ".config")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := resolveDir("WL_HOME", "XDG_DATA_HOME", "wl", ".local", "share")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// LogDir is where wl.log is written for a fresh config.
func (p Paths) LogDir() string {
	return filepath.Join(p.BaseDir, "log")
}

// NewConfig returns the config `wl config init` writes. Backups are
// age-encrypted unless encrypted is false.
func (p Paths) NewConfig(encrypted bool) *config.Config {
	cfg := config.NewConfig(p.BaseDir)
	if !encrypted {
		cfg.Encryption = config.EncryptionConfig{Type: "none"}
	}
	return cfg
}

// resolveDir returns $override when set, else $xdgVar/name, else
// ~/homeParts.../name.
func resolveDir(override, xdgVar, name string, homeParts ...string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, homeParts...), name)...), nil
}
