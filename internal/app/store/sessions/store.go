// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/runbooks/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	errRunbookRequired = errors.New("runbook_id is required")
	errUserRequired    = errors.New("user_id is required")
)

// Store manages runbook sessions.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// Create inserts a new session. An empty status starts the session as
// active. RunbookID and UserID are not checked against their collections.
func (s *Store) Create(ctx context.Context, sess models.Session) (models.Session, error) {
	now := time.Now().UTC()

	if sess.RunbookID.IsZero() {
		return models.Session{}, errRunbookRequired
	}
	if sess.UserID.IsZero() {
		return models.Session{}, errUserRequired
	}
	if sess.Status == "" {
		sess.Status = models.SessionActive
	}
	if !sess.Status.IsValid() {
		return models.Session{}, statusErr(sess.Status)
	}

	sess.ID = primitive.NewObjectID()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.CompletedAt = nil
	if sess.Status.IsTerminal() {
		sess.CompletedAt = &now
	}

	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Session, error) {
	var sess models.Session
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	return sess, err
}

// SetStatus writes status over whatever the session currently holds; any
// allowed status may follow any other. Moving to completed or failed stamps
// completed_at, moving to active or paused clears it.
// Returns mongo.ErrNoDocuments if no session has id.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status models.SessionStatus) error {
	if !status.IsValid() {
		return statusErr(status)
	}
	now := time.Now().UTC()

	update := bson.M{"$set": bson.M{"status": status, "updated_at": now}}
	if status.IsTerminal() {
		update["$set"].(bson.M)["completed_at"] = now
	} else {
		update["$unset"] = bson.M{"completed_at": ""}
	}

	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a session by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByRunbook returns sessions for a runbook, newest first.
// limit <= 0 means no limit.
func (s *Store) ListByRunbook(ctx context.Context, runbookID primitive.ObjectID, limit int64) ([]models.Session, error) {
	return s.find(ctx, bson.M{"runbook_id": runbookID}, limit)
}

// ListByUser returns a user's sessions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Session, error) {
	return s.find(ctx, bson.M{"user_id": userID}, limit)
}

// ListByStatus returns sessions in the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status models.SessionStatus, limit int64) ([]models.Session, error) {
	if !status.IsValid() {
		return nil, statusErr(status)
	}
	return s.find(ctx, bson.M{"status": status}, limit)
}

// Recent returns the most recently created sessions across all runbooks.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.Session, error) {
	return s.find(ctx, bson.M{}, limit)
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []models.Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func statusErr(v models.SessionStatus) error {
	return &models.EnumError{Field: "status", Value: string(v), Allowed: models.EnumValues(models.SessionStatuses)}
}
