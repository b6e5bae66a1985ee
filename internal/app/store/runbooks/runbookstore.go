// internal/app/store/runbooks/runbookstore.go
package runbookstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/runbooks/internal/app/system/htmlsanitize"
	"github.com/dalemusser/runbooks/internal/app/system/normalize"
	"github.com/dalemusser/runbooks/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	errTitleRequired = errors.New("title is required")
	errOwnerRequired = errors.New("owner_id is required")
	errEmptyQuery    = errors.New("search query is empty")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("runbooks")}
}

// Create inserts a new Runbook. Title is whitespace-normalized and stored as
// written; Description is sanitized only when it contains HTML tags. Tags are folded and deduplicated. Severity must be
// one of models.Severities and a decision tree, if present, must validate.
// Version defaults to 1. OwnerID is not checked against users.
func (s *Store) Create(ctx context.Context, r models.Runbook) (models.Runbook, error) {
	now := time.Now().UTC()

	r.ID = primitive.NewObjectID()
	r.Title = normalize.Title(r.Title)
	r.Description = strings.TrimSpace(htmlsanitize.Clean(r.Description))
	r.Tags = normalize.Tags(r.Tags)
	if r.Version == 0 {
		r.Version = 1
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if r.Title == "" {
		return models.Runbook{}, errTitleRequired
	}
	if r.OwnerID.IsZero() {
		return models.Runbook{}, errOwnerRequired
	}
	if !r.Severity.IsValid() {
		return models.Runbook{}, &models.EnumError{Field: "severity", Value: string(r.Severity), Allowed: models.EnumValues(models.Severities)}
	}
	if r.Version < 1 {
		return models.Runbook{}, fmt.Errorf("version must be at least 1 (got %d)", r.Version)
	}
	if r.DecisionTree != nil {
		if err := r.DecisionTree.Validate(); err != nil {
			return models.Runbook{}, fmt.Errorf("decision_tree: %w", err)
		}
		t := r.DecisionTree.WithDefaults()
		r.DecisionTree = &t
	}
	if r.ExecutionEnvironment != nil {
		e := r.ExecutionEnvironment.WithDefaults()
		r.ExecutionEnvironment = &e
	}

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Runbook{}, err
	}
	return r, nil
}

// Update lists the fields to change. Nil fields are left untouched; a non-nil
// Tags pointing at an empty slice clears the tags.
type Update struct {
	Title                *string
	Description          *string
	Severity             *models.Severity
	Tags                 *[]string
	ExecutionEnvironment *models.ExecutionEnvironment
	DecisionTree         *models.DecisionTree
}

// Update applies upd with a selective $set, refreshes updated_at and returns
// the updated runbook. Returns mongo.ErrNoDocuments if no runbook has id.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Runbook, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Title != nil {
		t := normalize.Title(*upd.Title)
		if t == "" {
			return nil, errTitleRequired
		}
		set["title"] = t
	}
	if upd.Description != nil {
		// Description can be cleared (set to empty)
		if d := strings.TrimSpace(htmlsanitize.Clean(*upd.Description)); d != "" {
			set["description"] = d
		} else {
			unset["description"] = ""
		}
	}
	if upd.Severity != nil {
		if !upd.Severity.IsValid() {
			return nil, &models.EnumError{Field: "severity", Value: string(*upd.Severity), Allowed: models.EnumValues(models.Severities)}
		}
		set["severity"] = *upd.Severity
	}
	if upd.Tags != nil {
		if tags := normalize.Tags(*upd.Tags); len(tags) > 0 {
			set["tags"] = tags
		} else {
			unset["tags"] = ""
		}
	}
	if upd.ExecutionEnvironment != nil {
		set["execution_environment"] = upd.ExecutionEnvironment.WithDefaults()
	}
	if upd.DecisionTree != nil {
		if err := upd.DecisionTree.Validate(); err != nil {
			return nil, fmt.Errorf("decision_tree: %w", err)
		}
		set["decision_tree"] = upd.DecisionTree.WithDefaults()
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}

	var r models.Runbook
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, doc,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByID returns a runbook by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Runbook, error) {
	var r models.Runbook
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.Runbook{}, err
	}
	return r, nil
}

// Delete removes a runbook by ID. Sessions that reference it are left in
// place. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByOwner returns the owner's runbooks, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Runbook, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID}, newestFirst())
}

// ListBySeverity returns runbooks at the given severity, newest first.
func (s *Store) ListBySeverity(ctx context.Context, sev models.Severity) ([]models.Runbook, error) {
	if !sev.IsValid() {
		return nil, &models.EnumError{Field: "severity", Value: string(sev), Allowed: models.EnumValues(models.Severities)}
	}
	return s.find(ctx, bson.M{"severity": sev}, newestFirst())
}

// ListByTag returns runbooks carrying tag, newest first. The tag is folded
// the same way stored tags are.
func (s *Store) ListByTag(ctx context.Context, tag string) ([]models.Runbook, error) {
	t := normalize.Tags([]string{tag})
	if len(t) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"tags": t[0]}, newestFirst())
}

// Search runs a full-text query over title and description and returns
// matches ordered by relevance. limit <= 0 means no limit.
func (s *Store) Search(ctx context.Context, query string, limit int64) ([]models.Runbook, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errEmptyQuery
	}
	score := bson.M{"score": bson.M{"$meta": "textScore"}}
	opts := options.Find().SetProjection(score).SetSort(score)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"$text": bson.M{"$search": q}}, opts)
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Runbook, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Runbook
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
