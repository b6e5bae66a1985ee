// Command runbooks-initdb provisions the runbooks database once and exits:
// collections with validators, indexes, and the optional bootstrap editor.
// It reads the same configuration as the runbooks service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/runbooks/internal/app/bootstrap"
	"github.com/dalemusser/runbooks/internal/app/provision"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(logger); err != nil {
		logger.Error("initdb failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coreCfg, appCfg, err := bootstrap.LoadConfig(logger)
	if err != nil {
		return err
	}
	if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
		return err
	}
	return provision.Run(ctx, appCfg.ProvisionConfig(), logger)
}
