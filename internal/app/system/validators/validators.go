// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/runbooks/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrCollectionExists is returned by Define when the collection is already
// present. It is a setup failure; retrying will not change the outcome.
var ErrCollectionExists = errors.New("collection already exists")

// Collection declares one collection and the JSON-Schema its documents must
// satisfy on every insert and update.
type Collection struct {
	Name       string
	Required   []string
	Properties bson.M
}

// Schema returns the $jsonSchema validator document for c.
func (c Collection) Schema() bson.M {
	req := bson.A{}
	for _, f := range c.Required {
		req = append(req, f)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   req,
			"properties": c.Properties,
		},
	}
}

// Collections returns the collections this app owns, in provisioning order.
func Collections() []Collection {
	return []Collection{usersCollection(), runbooksCollection(), sessionsCollection()}
}

// Define creates c.Name with its validator attached. Unlike EnsureAll it does
// not tolerate an existing collection: that returns ErrCollectionExists.
func Define(ctx context.Context, db *mongo.Database, c Collection) error {
	opts := options.CreateCollection().
		SetValidator(c.Schema()).
		SetValidationLevel("strict").
		SetValidationAction("error")
	if err := db.CreateCollection(ctx, c.Name, opts); err != nil {
		if isNamespaceExistsErr(err) {
			return fmt.Errorf("%s: %w", c.Name, ErrCollectionExists)
		}
		zap.L().Warn("createCollection failed", zap.String("collection", c.Name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection with validator", zap.String("collection", c.Name))
	return nil
}

// CreateAll runs Define for every collection and fails on the first error,
// including a collection that already exists. Use it against an empty
// database; EnsureAll is the idempotent path.
func CreateAll(ctx context.Context, db *mongo.Database) error {
	for _, c := range Collections() {
		if err := Define(ctx, db, c); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAll makes sure every collection exists and carries its current
// validator. It is safe to call on every startup. On servers that don't
// support collMod/validators (e.g. some DocumentDB versions), we log and skip.
// Problems are aggregated so one run reports all of them.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, c := range Collections() {
		if err := ensure(ctx, db, c); err != nil {
			problems = append(problems, c.Name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensure(ctx context.Context, db *mongo.Database, c Collection) error {
	exists, listErr := collectionExists(ctx, db, c.Name)
	if listErr != nil || !exists {
		// If listing failed, fall back to create-and-handle-race.
		err := Define(ctx, db, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCollectionExists) {
			return err
		}
	}
	zap.L().Info("collection exists", zap.String("collection", c.Name))

	if err := setValidator(ctx, db, c.Name, c.Schema()); err != nil {
		if isNoSuchCommand(err) || isNotImplemented(err) {
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.Name))
			return nil
		}
		return err
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "strict"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

// IsValidationErr reports whether err is a document validation rejection
// (server code 121).
func IsValidationErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 121 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 121 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "document failed validation")
}

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enum(vals []string) bson.M {
	a := bson.A{}
	for _, v := range vals {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	str      = bson.M{"bsonType": "string"}
	date     = bson.M{"bsonType": "date"}
	oid      = bson.M{"bsonType": "objectId"}
	strArray = bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}}
)

func usersCollection() Collection {
	return Collection{
		Name:     "users",
		Required: []string{"username", "email", "password_hash", "role", "created_at"},
		Properties: bson.M{
			"username":      nonBlank,
			"email":         nonBlank,
			"password_hash": nonBlank,
			"role":          enum(models.EnumValues(models.Roles)),
			"is_active":     bson.M{"bsonType": "bool"},
			"last_login":    date,
			"created_at":    date,
			"updated_at":    date,
		},
	}
}

func runbooksCollection() Collection {
	return Collection{
		Name:     "runbooks",
		Required: []string{"title", "owner_id", "severity", "created_at"},
		Properties: bson.M{
			"title":                 nonBlank,
			"description":           str,
			"owner_id":              oid,
			"severity":              enum(models.EnumValues(models.Severities)),
			"tags":                  strArray,
			"version":               bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			"execution_environment": bson.M{"bsonType": "object"},
			"decision_tree":         bson.M{"bsonType": "object"},
			"created_at":            date,
			"updated_at":            date,
		},
	}
}

func sessionsCollection() Collection {
	return Collection{
		Name:     "sessions",
		Required: []string{"runbook_id", "user_id", "status", "created_at"},
		Properties: bson.M{
			"runbook_id":      oid,
			"user_id":         oid,
			"status":          enum(models.EnumValues(models.SessionStatuses)),
			"current_node_id": str,
			"execution_path":  strArray,
			"container_id":    str,
			"created_at":      date,
			"updated_at":      date,
			"completed_at":    date,
		},
	}
}
