package testutil

import (
	"testing"

	"github.com/dalemusser/runbooks/internal/app/system/indexes"
	"github.com/dalemusser/runbooks/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupSchemaDB is SetupTestDB with validators and indexes already applied,
// for tests that exercise the stores against the real schema.
func SetupSchemaDB(t *testing.T) *mongo.Database {
	t.Helper()

	db := SetupTestDB(t)
	ctx, cancel := TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure validators: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return db
}
