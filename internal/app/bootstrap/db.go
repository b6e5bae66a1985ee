// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/runbooks/internal/app/provision"
	"github.com/dalemusser/runbooks/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and selects the app database.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	client, err := provision.Connect(ctx, appCfg.MongoURI, appCfg.MongoMaxPoolSize, appCfg.MongoMinPoolSize, logger)
	if err != nil {
		logger.Error("MongoDB connection failed", zap.Error(err))
		return DBDeps{}, err
	}
	return DBDeps{
		RunbooksMongoClient:   client,
		RunbooksMongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates collections with their validators and reconciles
// indexes, according to the configured schema mode.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Schema(), logger, "ensure schema")
	defer cancel()
	return provision.Schema(ctx, deps.RunbooksMongoDatabase, appCfg.SchemaMode, logger)
}
