package config

import (
	"os"
	"path/filepath"
	"testing"

	"arenapanel/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("ARENA_JWT_SECRET", testSecret)

	yamlContent := `
database:
  path: "test.db"
api:
  auth:
    jwt_secret: "${ARENA_JWT_SECRET}"
superadmins:
  - name: "Root"
    email: "Root@Example.com"
    password: "changeme123"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.API.Auth.JWTSecret != testSecret {
		t.Errorf("expected jwt secret from env, got %q", cfg.API.Auth.JWTSecret)
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Uploads.Backend != "local" || cfg.Uploads.MaxBytes != models.MaxUploadBytes {
		t.Errorf("unexpected upload defaults: %+v", cfg.Uploads)
	}
	if cfg.API.Auth.SessionTTL != models.DefaultSessionTTL {
		t.Errorf("expected default session ttl, got %d", cfg.API.Auth.SessionTTL)
	}
	if len(cfg.Superadmins) != 1 {
		t.Errorf("expected 1 superadmin, got %d", len(cfg.Superadmins))
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		c := Config{
			Database: DatabaseConfig{Path: "path"},
			API:      APIConfig{Auth: APIAuthConfig{JWTSecret: testSecret}},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "short jwt secret", mutate: func(c *Config) { c.API.Auth.JWTSecret = "short" }, wantErr: true},
		{name: "unknown upload backend", mutate: func(c *Config) { c.Uploads.Backend = "ftp" }, wantErr: true},
		{
			name: "gcs without bucket",
			mutate: func(c *Config) {
				c.Uploads.Backend = "gcs"
				c.Google.CredentialsFile = "creds.json"
			},
			wantErr: true,
		},
		{
			name:    "upload limit above maximum",
			mutate:  func(c *Config) { c.Uploads.MaxBytes = models.MaxUploadBytes + 1 },
			wantErr: true,
		},
		{
			name: "duplicate superadmin email",
			mutate: func(c *Config) {
				c.Superadmins = []BootstrapUser{
					{Name: "A", Email: "root@example.com", Password: "password1"},
					{Name: "B", Email: "ROOT@example.com", Password: "password2"},
				}
			},
			wantErr: true,
		},
		{
			name: "short superadmin password",
			mutate: func(c *Config) {
				c.Superadmins = []BootstrapUser{{Name: "A", Email: "a@example.com", Password: "short"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
