package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/role-auth/internal/model"
)

type tokenDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Token     string        `bson:"token"`
	UserID    bson.ObjectID `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
}

func (d tokenDoc) model() model.AccessToken {
	return model.AccessToken{ID: d.ID.Hex(), Token: d.Token, UserID: d.UserID.Hex(), CreatedAt: d.CreatedAt}
}

// MongoTokenRepo persists access tokens in user_access_tokens.  The
// owner id is stored as an ObjectID so DeleteByOwner hits the user_id
// index.
type MongoTokenRepo struct{ coll *mongo.Collection }

func NewMongoTokenRepo(db *mongo.Database) *MongoTokenRepo {
	return &MongoTokenRepo{coll: db.Collection(tokensCollection)}
}

func (r *MongoTokenRepo) Put(ctx context.Context, token, userID string) (model.AccessToken, error) {
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("token owner id %q: %w", userID, err)
	}
	doc := tokenDoc{ID: bson.NewObjectID(), Token: token, UserID: uid, CreatedAt: time.Now().UTC()}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return model.AccessToken{}, mongoErr("insert token", err)
	}
	return doc.model(), nil
}

func (r *MongoTokenRepo) Get(ctx context.Context, token string) (model.AccessToken, error) {
	var doc tokenDoc
	if err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		return model.AccessToken{}, mongoErr("find token", err)
	}
	return doc.model(), nil
}

func (r *MongoTokenRepo) Delete(ctx context.Context, token string) (int64, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		return 0, mongoErr("delete token", err)
	}
	if res.DeletedCount < 1 {
		return 0, ErrNotFound
	}
	return res.DeletedCount, nil
}

func (r *MongoTokenRepo) DeleteByOwner(ctx context.Context, userID string) (int64, error) {
	uid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		// no token can reference an id that is not an ObjectID
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": uid})
	if err != nil {
		return 0, mongoErr("delete tokens by owner", err)
	}
	return res.DeletedCount, nil
}
