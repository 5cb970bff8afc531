package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.  The permissions collection of earlier schemas is
// not used.
const (
	usersCollection  = "users"
	tokensCollection = "user_access_tokens"
	rolesCollection  = "user_roles"
)

// NewMongoStores wires the three Mongo-backed stores over db.  The
// returned bundle disconnects client on Close.
func NewMongoStores(client *mongo.Client, db *mongo.Database) Stores {
	return Stores{
		Users:   NewMongoUserRepo(db),
		Tokens:  NewMongoTokenRepo(db),
		Roles:   NewMongoRoleRepo(db),
		closeFn: client.Disconnect,
	}
}

// EnsureMongoIndexes creates the unique and lookup indexes the stores
// rely on.  Creating an index that already exists is a no-op.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{usersCollection, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{usersCollection, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}}},
		{tokensCollection, mongo.IndexModel{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique}},
		{tokensCollection, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}},
		{rolesCollection, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}},
	}
	for _, s := range specs {
		if _, err := db.Collection(s.coll).Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("create index on %s: %w", s.coll, err)
		}
	}
	return nil
}

// objectID parses a hex id.  Malformed ids cannot name an existing
// document, so they map to ErrNotFound.
func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, ErrNotFound
	}
	return oid, nil
}

// mongoErr maps driver errors onto the package sentinels.
func mongoErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
