// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/runbooks/internal/app/provision"
	"github.com/dalemusser/runbooks/internal/app/system/passwords"
	"github.com/dalemusser/runbooks/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvPrefix is the environment variable prefix for app keys
// (RUNBOOKS_MONGO_URI, RUNBOOKS_SCHEMA_MODE, ...).
const EnvPrefix = "RUNBOOKS"

// AppConfigKeys defines the configuration keys for the runbooks service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, schema_mode, etc.
//   - Environment variables: RUNBOOKS_MONGO_URI, RUNBOOKS_SCHEMA_MODE, etc.
//   - Command-line flags: --mongo_uri, --schema_mode, etc.
var AppConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "runbooks_db", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},

	// Schema provisioning
	{Name: "schema_mode", Default: provision.ModeEnsure, Desc: "Schema setup: 'ensure' (idempotent) or 'create' (fail if collections exist)"},

	// Bootstrap editor
	{Name: "seed_editor_email", Default: "", Desc: "Email of the bootstrap editor (created on startup if absent; blank disables)"},
	{Name: "seed_editor_username", Default: "", Desc: "Username of the bootstrap editor (default: email local part)"},
	{Name: "seed_editor_password", Default: "", Desc: "Password of the bootstrap editor"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "MongoDB ping timeout for health checks"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_schema", Default: "60s", Desc: "Timeout for one schema provisioning pass"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// environment variables (WAFFLE_* for core, RUNBOOKS_* for app) and flags
// with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, AppConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SchemaMode: strings.ToLower(strings.TrimSpace(appValues.String("schema_mode"))),

		SeedEditorEmail:    appValues.String("seed_editor_email"),
		SeedEditorUsername: appValues.String("seed_editor_username"),
		SeedEditorPassword: appValues.String("seed_editor_password"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutSchema: appValues.Duration("timeout_schema", timeouts.DefaultSchema),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked to catch configuration errors early,
// before attempting to connect. On success the configured timeouts are
// installed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAppConfig(appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}

	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Schema: appCfg.TimeoutSchema,
	})
	return nil
}

func validateAppConfig(appCfg AppConfig) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if !provision.ValidMode(appCfg.SchemaMode) {
		return fmt.Errorf("schema_mode must be %q or %q (got %q)", provision.ModeEnsure, provision.ModeCreate, appCfg.SchemaMode)
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize && appCfg.MongoMaxPoolSize > 0 {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)", appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	for name, d := range map[string]time.Duration{
		"timeout_ping":   appCfg.TimeoutPing,
		"timeout_short":  appCfg.TimeoutShort,
		"timeout_schema": appCfg.TimeoutSchema,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative (got %s)", name, d)
		}
	}
	if email := strings.TrimSpace(appCfg.SeedEditorEmail); email != "" {
		// The local part is the fallback username, so it must not be empty.
		local, domain, ok := strings.Cut(email, "@")
		if !ok || strings.TrimSpace(local) == "" || strings.TrimSpace(domain) == "" {
			return fmt.Errorf("seed_editor_email %q is not an email address", appCfg.SeedEditorEmail)
		}
		if err := passwords.Validate(appCfg.SeedEditorPassword); err != nil {
			return fmt.Errorf("seed_editor_password: %w", err)
		}
	}
	return nil
}

// ProvisionConfig returns the provisioning settings carried by appCfg.
func (c AppConfig) ProvisionConfig() provision.Config {
	return provision.Config{
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
		Mode:          c.SchemaMode,
		Editor:        c.Editor(),
	}
}

// Editor returns the bootstrap editor settings.
func (c AppConfig) Editor() provision.Editor {
	return provision.Editor{
		Email:    c.SeedEditorEmail,
		Username: c.SeedEditorUsername,
		Password: c.SeedEditorPassword,
	}
}
