// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); AppConfig is
// everything specific to the runbooks service.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Schema provisioning: "ensure" (idempotent) or "create" (empty database only)
	SchemaMode string

	// Bootstrap editor account, created on startup if absent. Blank email disables it.
	SeedEditorEmail    string
	SeedEditorUsername string // defaults to the email's local part
	SeedEditorPassword string

	// Timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutSchema time.Duration
}
