package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/runbooks/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
// Documents are inserted directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given username and role. The email is
// derived from the username.
func (f *Fixtures) CreateUser(ctx context.Context, username string, role models.Role) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        strings.ToLower(username) + "@example.com",
		PasswordHash: "$2a$10$fixturefixturefixturefixturefixturefixturefixturefixt",
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateEditor inserts an editor user.
func (f *Fixtures) CreateEditor(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, models.RoleEditor)
}

// CreateRunbook inserts a runbook owned by ownerID.
func (f *Fixtures) CreateRunbook(ctx context.Context, title, description string, ownerID primitive.ObjectID, sev models.Severity, tags ...string) models.Runbook {
	f.t.Helper()

	now := time.Now().UTC()
	rb := models.Runbook{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
		Severity:    sev,
		Tags:        tags,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("runbooks").InsertOne(ctx, rb); err != nil {
		f.t.Fatalf("failed to create test runbook: %v", err)
	}
	return rb
}

// CreateSession inserts a session with the given status. createdAt lets
// tests control ordering.
func (f *Fixtures) CreateSession(ctx context.Context, runbookID, userID primitive.ObjectID, status models.SessionStatus, createdAt time.Time) models.Session {
	f.t.Helper()

	s := models.Session{
		ID:        primitive.NewObjectID(),
		RunbookID: runbookID,
		UserID:    userID,
		Status:    status,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}
	if _, err := f.db.Collection("sessions").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test session: %v", err)
	}
	return s
}
