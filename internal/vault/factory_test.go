package vault

import (
	"context"
	"path/filepath"
	"testing"

	"wishlist-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{
			name: "memory vault",
			cfg:  config.VaultConfig{Type: "memory", Name: "test-memory"},
		},
		{
			name: "filesystem vault",
			cfg:  config.VaultConfig{Type: "filesystem", Name: "test-fs", FSVaultRoot: filepath.Join(t.TempDir(), "v")},
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Error("NewVaultFromConfig() returned a vault alongside an error")
				}
				return
			}

			if got.Name() != tt.cfg.Name {
				t.Errorf("Name() = %q, want %q", got.Name(), tt.cfg.Name)
			}
			if err := got.ValidateSetup(context.Background()); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestNewVaultFromConfig_S3(t *testing.T) {
	t.Setenv(EnvS3AccessKeyID, "test-key")
	t.Setenv(EnvS3SecretAccessKey, "test-secret")

	got, err := NewVaultFromConfig(context.Background(), config.VaultConfig{
		Type: "s3", Name: "offsite",
		S3Bucket: "wishlists", S3Prefix: "phone", S3Region: "us-east-1",
		S3Endpoint: "http://127.0.0.1:9", S3UsePathStyle: true,
	})
	if err != nil {
		t.Fatalf("NewVaultFromConfig() error = %v", err)
	}

	v, ok := got.(*S3Vault)
	if !ok {
		t.Fatalf("NewVaultFromConfig() = %T, want *S3Vault", got)
	}
	if v.bucket != "wishlists" || v.prefix != "phone/documents/" {
		t.Errorf("bucket/prefix = %q/%q, want wishlists/phone/documents/", v.bucket, v.prefix)
	}
}
