// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Definition is the desired index set for one collection.
type Definition struct {
	Collection string
	Models     []mongo.IndexModel
}

// Definitions returns the index sets for every collection, in provisioning order.
func Definitions() []Definition {
	return []Definition{usersIndexes(), runbooksIndexes(), sessionsIndexes()}
}

/*
EnsureAll is called at startup and by the provisioning command. Each
collection's index set is reconciled idempotently. We aggregate errors so any
problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, d := range Definitions() {
		if err := ensureIndexSet(ctx, db.Collection(d.Collection), d.Models); err != nil {
			problems = append(problems, d.Collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Weights bson.M `bson:"weights,omitempty"`
}

// keySig renders a key pattern as "field:dir, ...". Text fields are stored by
// the server as {_fts:"text", _ftsx:1}, so desired text keys collapse to that
// form and the text field set is compared separately via textFields.
func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	sawText := false
	for _, kv := range keys {
		if kv.Value == "text" && kv.Key != "_fts" {
			if !sawText {
				parts = append(parts, "_fts:text", "_ftsx:1")
				sawText = true
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// textFields returns the sorted text-indexed fields of a desired key pattern.
func textFields(keys bson.D) []string {
	var out []string
	for _, kv := range keys {
		if kv.Value == "text" {
			out = append(out, kv.Key)
		}
	}
	sort.Strings(out)
	return out
}

func (ex existingIndex) textFields() []string {
	out := make([]string, 0, len(ex.Weights))
	for k := range ex.Weights {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB returns IndexOptionsConflict (85) or IndexKeySpecsConflict (86)
// when an index with the same keys or name already exists with other options.
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 85 || ce.Code == 86) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "IndexOptionsConflict") || strings.Contains(s, "IndexKeySpecsConflict")
}

// duplicatesHint names the aggregation that finds offending documents when a
// unique index cannot be built.
func duplicatesHint(coll string, keys bson.D) string {
	if len(keys) != 1 {
		return ""
	}
	f := keys[0].Key
	return fmt.Sprintf(": duplicates exist on %s.%s. Example finder:\n"+
		`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
		coll, f, coll, f)
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	existing := map[string]existingIndex{} // sig -> index
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing, cur.Err()
}

// matches reports whether an existing index already satisfies m's options.
func matches(ex existingIndex, keys bson.D, unique *bool) bool {
	if !sameBoolPtr(unique, ex.Unique) {
		return false
	}
	if tf := textFields(keys); len(tf) > 0 {
		return sameStrings(tf, ex.textFields())
	}
	return true
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		keys := m.Keys.(bson.D)
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(keys)
		unique := desiredUnique != nil && *desiredUnique

		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique))
		log.Info("ensuring index")

		// A listing failure (e.g. collection not yet created) is treated as
		// "no indexes"; CreateOne below creates the collection implicitly.
		existing, err := listExisting(ctx, coll)
		if err != nil {
			existing = map[string]existingIndex{}
		}

		if ex, ok := existing[desiredSig]; ok {
			if matches(ex, keys, desiredUnique) {
				if desiredName == "" || ex.Name == desiredName {
					log.Info("reusing existing index", zap.String("took", time.Since(start).String()))
					continue
				}
				log.Info("renaming index to align with desired name", zap.String("from", ex.Name))
			} else {
				log.Info("index options changed; recreating", zap.String("existing", ex.Name))
			}

			// Same keys under another name or with other options: drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err == nil {
			log.Info("index ensured",
				zap.String("created_name", created),
				zap.String("took", time.Since(start).String()))
			continue
		}

		switch {
		case isDuplicateKeyErr(err) && unique:
			errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s",
				coll.Name(), desiredName, duplicatesHint(coll.Name(), keys)))
		case isOptionsConflictErr(err):
			// An index with this name exists on different keys. Replace it.
			if _, dropErr := coll.Indexes().DropOne(ctx, desiredName); dropErr != nil {
				log.Warn("failed to drop conflicting index", zap.Error(dropErr))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}
			if _, e2 := coll.Indexes().CreateOne(ctx, m); e2 != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, e2))
				continue
			}
			log.Info("index dropped and recreated (post-conflict)", zap.String("took", time.Since(start).String()))
			continue
		default:
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
		}
		log.Warn("index ensure failed", zap.String("took", time.Since(start).String()), zap.Error(err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

// Index names the stores rely on to tell which unique constraint fired.
const (
	UsersEmailUnique    = "uniq_users_email"
	UsersUsernameUnique = "uniq_users_username"
	RunbooksText        = "txt_runbooks_title_description"
)

func usersIndexes() Definition {
	return Definition{Collection: "users", Models: []mongo.IndexModel{
		// Email and username are each unique across all users.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersEmailUnique),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersUsernameUnique),
		},
	}}
}

func runbooksIndexes() Definition {
	return Definition{Collection: "runbooks", Models: []mongo.IndexModel{
		// Full-text search over title and description
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName(RunbooksText),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("idx_runbooks_owner"),
		},
		{
			Keys:    bson.D{{Key: "severity", Value: 1}},
			Options: options.Index().SetName("idx_runbooks_severity"),
		},
		// Multikey over the tags array
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_runbooks_tags"),
		},
	}}
}

func sessionsIndexes() Definition {
	return Definition{Collection: "sessions", Models: []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "runbook_id", Value: 1}},
			Options: options.Index().SetName("idx_sessions_runbook"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_sessions_user"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_sessions_status"),
		},
		// Recent sessions first
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_sessions_created_desc"),
		},
	}}
}
