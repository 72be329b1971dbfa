package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for wl.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Encryption EncryptionConfig `toml:"encryption"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Export     ExportConfig     `toml:"export"`
}

// DatabaseConfig represents configuration for the wishlist store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig selects how backups are encrypted and where the age key pair lives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
	Armor          bool   `toml:"armor,omitempty"` // write ASCII-armored age documents
}

// VaultConfig represents configuration for a backup destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"`
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// ExportConfig holds defaults for `wl export` and `wl backup`.
type ExportConfig struct {
	Dir   string `toml:"dir,omitempty"`   // where plain exports are written
	Vault string `toml:"vault,omitempty"` // default vault for backups; first vault when empty
}

// NewConfig creates a new Config rooted at baseDir with a sqlite database,
// age encryption and a filesystem vault under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wl.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wl.key"),
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Export: ExportConfig{
			Dir: filepath.Join(baseDir, "exports"),
		},
	}
}

// Vault returns the vault named name, or the default vault when name is empty.
func (c *Config) Vault(name string) (VaultConfig, error) {
	if name == "" {
		name = c.Export.Vault
	}
	if name == "" {
		if len(c.Vaults) == 0 {
			return VaultConfig{}, fmt.Errorf("no vaults configured")
		}
		return c.Vaults[0], nil
	}
	for _, v := range c.Vaults {
		if v.Name == name {
			return v, nil
		}
	}
	return VaultConfig{}, fmt.Errorf("vault %q not found in config", name)
}

// Validate checks the config for settings that cannot work.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Vaults))
	for i, v := range c.Vaults {
		if v.Name == "" {
			return fmt.Errorf("vaults[%d]: name is required", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("vaults[%d]: duplicate vault name %q", i, v.Name)
		}
		seen[v.Name] = true
	}
	if c.Export.Vault != "" && !seen[c.Export.Vault] {
		return fmt.Errorf("export.vault %q does not name a configured vault", c.Export.Vault)
	}
	switch c.Encryption.Type {
	case "", "age":
		if c.Encryption.PublicKeyPath == "" || c.Encryption.PrivateKeyPath == "" {
			return fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
	case "test", "none":
	default:
		return fmt.Errorf("unknown encryption type: %q", c.Encryption.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
