// Package provision brings a MongoDB database up to the schema the app
// expects: collections with validators, then indexes, then an optional
// bootstrap editor account.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	userstore "github.com/dalemusser/runbooks/internal/app/store/users"
	"github.com/dalemusser/runbooks/internal/app/system/indexes"
	"github.com/dalemusser/runbooks/internal/app/system/passwords"
	"github.com/dalemusser/runbooks/internal/app/system/timeouts"
	"github.com/dalemusser/runbooks/internal/app/system/validators"
	"github.com/dalemusser/runbooks/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Schema modes.
const (
	// ModeEnsure creates missing collections and reconciles validators on
	// existing ones. Safe to run repeatedly.
	ModeEnsure = "ensure"
	// ModeCreate expects an empty database and fails if any collection
	// already exists.
	ModeCreate = "create"
)

// ValidMode reports whether m is ModeEnsure or ModeCreate.
func ValidMode(m string) bool {
	return m == ModeEnsure || m == ModeCreate
}

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string, maxPool, minPool uint64, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	if maxPool > 0 {
		opts.SetMaxPoolSize(maxPool)
	}
	if minPool > 0 {
		opts.SetMinPoolSize(minPool)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB")
	return client, nil
}

// Schema applies collection validators according to mode, then indexes.
// Index problems are reported even when validators succeed; validator
// failure stops before indexes are touched.
func Schema(ctx context.Context, db *mongo.Database, mode string, logger *zap.Logger) error {
	start := time.Now()
	log := logger.With(zap.String("database", db.Name()), zap.String("mode", mode))

	var err error
	switch mode {
	case ModeEnsure, "":
		err = validators.EnsureAll(ctx, db)
	case ModeCreate:
		err = validators.CreateAll(ctx, db)
	default:
		return fmt.Errorf("unknown schema mode %q", mode)
	}
	if err != nil {
		log.Error("collection setup failed", zap.Error(err))
		return fmt.Errorf("validators: %w", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		log.Error("index setup failed", zap.Error(err))
		return fmt.Errorf("indexes: %w", err)
	}

	log.Info("schema ready", zap.Duration("took", time.Since(start)))
	return nil
}

// Editor describes the bootstrap editor account. An empty Email disables
// seeding.
type Editor struct {
	Email    string
	Username string
	Password string
}

// Enabled reports whether an editor account should be seeded.
func (e Editor) Enabled() bool {
	return strings.TrimSpace(e.Email) != ""
}

// username returns the configured username, or the email's local part.
func (e Editor) username() string {
	if u := strings.TrimSpace(e.Username); u != "" {
		return u
	}
	local, _, _ := strings.Cut(strings.TrimSpace(e.Email), "@")
	return local
}

// SeedEditor creates the bootstrap editor if no user has its email. An
// existing account is left unchanged. It reports whether a user was created.
func SeedEditor(ctx context.Context, db *mongo.Database, e Editor, logger *zap.Logger) (bool, error) {
	if !e.Enabled() {
		return false, nil
	}
	users := userstore.New(db)
	log := logger.With(zap.String("email", e.Email))

	existing, err := users.GetByEmail(ctx, e.Email)
	if err == nil {
		log.Info("bootstrap editor already exists", zap.String("role", string(existing.Role)))
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("lookup bootstrap editor: %w", err)
	}

	hash, err := passwords.Hash(e.Password)
	if err != nil {
		return false, fmt.Errorf("bootstrap editor password: %w", err)
	}

	u, err := users.Create(ctx, models.User{
		Username:     e.username(),
		Email:        e.Email,
		PasswordHash: hash,
		Role:         models.RoleEditor,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		// Created concurrently by another instance.
		log.Info("bootstrap editor already exists")
		return false, nil
	case err != nil:
		return false, fmt.Errorf("create bootstrap editor: %w", err)
	}

	log.Info("bootstrap editor created", zap.String("id", u.ID.Hex()), zap.String("username", u.Username))
	return true, nil
}

// Config is everything one provisioning run needs.
type Config struct {
	MongoURI      string
	MongoDatabase string
	Mode          string
	Editor        Editor
}

// Run connects, applies the schema, seeds the bootstrap editor and
// disconnects. It is the body of the one-shot initdb command.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	log := logger.With(zap.String("run_id", uuid.NewString()))
	log.Info("provisioning started",
		zap.String("database", cfg.MongoDatabase),
		zap.String("mode", cfg.Mode))

	if !ValidMode(cfg.Mode) {
		return fmt.Errorf("schema mode must be %q or %q (got %q)", ModeEnsure, ModeCreate, cfg.Mode)
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Schema(), log, "provision")
	defer cancel()

	client, err := Connect(ctx, cfg.MongoURI, 0, 0, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	db := client.Database(cfg.MongoDatabase)
	if err := Schema(ctx, db, cfg.Mode, log); err != nil {
		return err
	}
	if _, err := SeedEditor(ctx, db, cfg.Editor, log); err != nil {
		return err
	}

	log.Info("provisioning finished")
	return nil
}
