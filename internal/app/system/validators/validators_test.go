package validators_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/runbooks/internal/app/system/validators"
	"github.com/dalemusser/runbooks/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCollections_RequiredFields(t *testing.T) {
	want := map[string][]string{
		"users":    {"username", "email", "password_hash", "role", "created_at"},
		"runbooks": {"title", "owner_id", "severity", "created_at"},
		"sessions": {"runbook_id", "user_id", "status", "created_at"},
	}

	colls := validators.Collections()
	if len(colls) != len(want) {
		t.Fatalf("Collections: got %d, want %d", len(colls), len(want))
	}
	for _, c := range colls {
		req, ok := want[c.Name]
		if !ok {
			t.Errorf("unexpected collection %q", c.Name)
			continue
		}
		if len(c.Required) != len(req) {
			t.Errorf("%s required: got %v, want %v", c.Name, c.Required, req)
			continue
		}
		for i := range req {
			if c.Required[i] != req[i] {
				t.Errorf("%s required[%d]: got %q, want %q", c.Name, i, c.Required[i], req[i])
			}
		}
	}
}

func TestCollections_EnumsMatchModels(t *testing.T) {
	want := map[string]struct {
		field string
		vals  []string
	}{
		"users":    {"role", []string{"admin", "editor", "responder"}},
		"runbooks": {"severity", []string{"low", "medium", "high", "critical"}},
		"sessions": {"status", []string{"active", "paused", "completed", "failed"}},
	}

	for _, c := range validators.Collections() {
		w := want[c.Name]
		prop, ok := c.Properties[w.field].(bson.M)
		if !ok {
			t.Fatalf("%s.%s: property missing", c.Name, w.field)
		}
		got, ok := prop["enum"].(bson.A)
		if !ok {
			t.Fatalf("%s.%s: enum missing", c.Name, w.field)
		}
		if len(got) != len(w.vals) {
			t.Fatalf("%s.%s enum: got %v, want %v", c.Name, w.field, got, w.vals)
		}
		for i := range w.vals {
			if got[i] != w.vals[i] {
				t.Errorf("%s.%s enum[%d]: got %v, want %q", c.Name, w.field, i, got[i], w.vals[i])
			}
		}
	}
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_AttachesValidatorToExistingCollection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Created before provisioning, without a validator.
	if err := db.CreateCollection(ctx, "users"); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("users").InsertOne(ctx, bson.M{"username": "nobody"})
	if !validators.IsValidationErr(err) {
		t.Errorf("expected validation error after collMod, got %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{"users", "runbooks", "sessions"} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestDefine_ExistingCollectionFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := validators.Collections()[0]
	if err := validators.Define(ctx, db, users); err != nil {
		t.Fatalf("first Define failed: %v", err)
	}
	err := validators.Define(ctx, db, users)
	if !errors.Is(err, validators.ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}
}

func TestCreateAll_FailsOnProvisionedDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.CreateAll(ctx, db); err != nil {
		t.Fatalf("CreateAll on empty database failed: %v", err)
	}
	if err := validators.CreateAll(ctx, db); !errors.Is(err, validators.ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists on second CreateAll, got %v", err)
	}
}

/* ------------------------------- users ------------------------------- */

func validUser() bson.M {
	return bson.M{
		"username":      "alice",
		"email":         "alice@example.com",
		"password_hash": "$2a$10$hash",
		"role":          "responder",
		"created_at":    time.Now().UTC(),
	}
}

func TestUsersValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"missing username", func(d bson.M) { delete(d, "username") }, true},
		{"missing email", func(d bson.M) { delete(d, "email") }, true},
		{"missing password_hash", func(d bson.M) { delete(d, "password_hash") }, true},
		{"missing role", func(d bson.M) { delete(d, "role") }, true},
		{"missing created_at", func(d bson.M) { delete(d, "created_at") }, true},
		{"invalid role", func(d bson.M) { d["role"] = "viewer" }, true},
		{"created_at as string", func(d bson.M) { d["created_at"] = "2024-01-01" }, true},
		{"blank username", func(d bson.M) { d["username"] = "   " }, true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validUser()
			// keep unique fields distinct across subtests
			doc["username"] = doc["username"].(string) + string(rune('a'+i))
			doc["email"] = string(rune('a'+i)) + doc["email"].(string)
			tt.mutate(doc)

			_, err := db.Collection("users").InsertOne(ctx, doc)
			if tt.wantErr && !validators.IsValidationErr(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("insert failed: %v", err)
			}
		})
	}
}

func TestUsersValidator_UpdateRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	res, err := db.Collection("users").InsertOne(ctx, validUser())
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	_, err = db.Collection("users").UpdateByID(ctx, res.InsertedID, bson.M{"$set": bson.M{"role": "owner"}})
	if !validators.IsValidationErr(err) {
		t.Errorf("expected validation error on update, got %v", err)
	}
}

/* ------------------------------ runbooks ----------------------------- */

func TestRunbooksValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	owner := primitive.NewObjectID()

	valid := func() bson.M {
		return bson.M{
			"title":      "Deploy Rollback",
			"owner_id":   owner,
			"severity":   "high",
			"created_at": time.Now().UTC(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"with optional fields", func(d bson.M) {
			d["description"] = "Roll back the last deploy"
			d["tags"] = bson.A{"deploy", "k8s"}
			d["updated_at"] = time.Now().UTC()
		}, false},
		{"missing title", func(d bson.M) { delete(d, "title") }, true},
		{"missing owner_id", func(d bson.M) { delete(d, "owner_id") }, true},
		{"missing severity", func(d bson.M) { delete(d, "severity") }, true},
		{"missing created_at", func(d bson.M) { delete(d, "created_at") }, true},
		{"invalid severity", func(d bson.M) { d["severity"] = "urgent" }, true},
		{"owner_id as string", func(d bson.M) { d["owner_id"] = owner.Hex() }, true},
		{"tags with number", func(d bson.M) { d["tags"] = bson.A{"ok", 7} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			_, err := db.Collection("runbooks").InsertOne(ctx, doc)
			if tt.wantErr && !validators.IsValidationErr(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("insert failed: %v", err)
			}
		})
	}
}

func TestRunbooksValidator_DeployRollbackScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateEditor(ctx, "owner")

	_, err := db.Collection("runbooks").InsertOne(ctx, bson.M{
		"title":      "Deploy Rollback",
		"owner_id":   owner.ID,
		"severity":   "high",
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err = db.Collection("runbooks").InsertOne(ctx, bson.M{
		"title":      "Deploy Rollback",
		"owner_id":   owner.ID,
		"created_at": time.Now().UTC(),
	})
	if !validators.IsValidationErr(err) {
		t.Errorf("expected validation error for missing severity, got %v", err)
	}
}

/* ------------------------------ sessions ----------------------------- */

func TestSessionsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	valid := func() bson.M {
		return bson.M{
			"runbook_id": primitive.NewObjectID(),
			"user_id":    primitive.NewObjectID(),
			"status":     "active",
			"created_at": time.Now().UTC(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"paused", func(d bson.M) { d["status"] = "paused" }, false},
		{"completed", func(d bson.M) { d["status"] = "completed"; d["completed_at"] = time.Now().UTC() }, false},
		{"failed", func(d bson.M) { d["status"] = "failed" }, false},
		{"missing runbook_id", func(d bson.M) { delete(d, "runbook_id") }, true},
		{"missing user_id", func(d bson.M) { delete(d, "user_id") }, true},
		{"missing status", func(d bson.M) { delete(d, "status") }, true},
		{"missing created_at", func(d bson.M) { delete(d, "created_at") }, true},
		{"invalid status", func(d bson.M) { d["status"] = "running" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			_, err := db.Collection("sessions").InsertOne(ctx, doc)
			if tt.wantErr && !validators.IsValidationErr(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("insert failed: %v", err)
			}
		})
	}
}
