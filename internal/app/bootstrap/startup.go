// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/runbooks/internal/app/provision"
	"github.com/dalemusser/runbooks/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It seeds the bootstrap editor when one is configured. An existing account
// with that email is left unchanged.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	return ensureEditor(ctx, deps, appCfg.Editor(), logger)
}

func ensureEditor(ctx context.Context, deps DBDeps, ed provision.Editor, logger *zap.Logger) error {
	if !ed.Enabled() {
		logger.Debug("no bootstrap editor configured")
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "seed editor")
	defer cancel()

	if _, err := provision.SeedEditor(ctx, deps.RunbooksMongoDatabase, ed, logger); err != nil {
		logger.Error("bootstrap editor setup failed", zap.Error(err))
		return err
	}
	return nil
}
