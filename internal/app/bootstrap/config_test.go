package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/runbooks/internal/app/provision"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "runbooks_db",
		MongoMaxPoolSize: 100,
		MongoMinPoolSize: 5,
		SchemaMode:       provision.ModeEnsure,
		TimeoutPing:      2 * time.Second,
		TimeoutShort:     5 * time.Second,
		TimeoutSchema:    time.Minute,
	}
}

func TestValidateAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"create mode", func(c *AppConfig) { c.SchemaMode = provision.ModeCreate }, ""},
		{"bad uri", func(c *AppConfig) { c.MongoURI = "postgres://localhost/runbooks" }, "MongoDB URI"},
		{"no database", func(c *AppConfig) { c.MongoDatabase = " " }, "mongo_database"},
		{"bad mode", func(c *AppConfig) { c.SchemaMode = "drop" }, "schema_mode"},
		{"pool sizes", func(c *AppConfig) { c.MongoMinPoolSize = 200 }, "mongo_min_pool_size"},
		{"negative timeout", func(c *AppConfig) { c.TimeoutSchema = -time.Second }, "timeout_schema"},
		{"seed ok", func(c *AppConfig) {
			c.SeedEditorEmail = "editor@example.com"
			c.SeedEditorPassword = "correct-horse-battery"
		}, ""},
		{"seed bad email", func(c *AppConfig) {
			c.SeedEditorEmail = "editor"
			c.SeedEditorPassword = "correct-horse-battery"
		}, "seed_editor_email"},
		{"seed empty local part", func(c *AppConfig) {
			c.SeedEditorEmail = "@example.com"
			c.SeedEditorPassword = "correct-horse-battery"
		}, "seed_editor_email"},
		{"seed blank local part", func(c *AppConfig) {
			c.SeedEditorEmail = "  @example.com"
			c.SeedEditorPassword = "correct-horse-battery"
		}, "seed_editor_email"},
		{"seed empty domain", func(c *AppConfig) {
			c.SeedEditorEmail = "editor@"
			c.SeedEditorPassword = "correct-horse-battery"
		}, "seed_editor_email"},
		{"seed weak password", func(c *AppConfig) {
			c.SeedEditorEmail = "editor@example.com"
			c.SeedEditorPassword = "password123"
		}, "seed_editor_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateAppConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProvisionConfig(t *testing.T) {
	cfg := validConfig()
	cfg.SeedEditorEmail = "editor@example.com"
	cfg.SeedEditorUsername = "editor"
	cfg.SeedEditorPassword = "correct-horse-battery"

	pc := cfg.ProvisionConfig()
	if pc.MongoURI != cfg.MongoURI || pc.MongoDatabase != cfg.MongoDatabase || pc.Mode != cfg.SchemaMode {
		t.Errorf("ProvisionConfig: got %+v", pc)
	}
	if !pc.Editor.Enabled() || pc.Editor.Username != "editor" {
		t.Errorf("Editor: got %+v", pc.Editor)
	}
}
