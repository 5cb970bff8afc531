package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/role-auth/internal/model"
)

// userDoc mirrors a document of the users collection.
type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Name      string        `bson:"name"`
	Surname   string        `bson:"surname"`
	Password  string        `bson:"password"`
	Roles     []string      `bson:"roles,omitempty"`
	Version   int64         `bson:"version"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (d userDoc) model() model.User {
	return model.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		Surname:      d.Surname,
		PasswordHash: d.Password,
		Roles:        d.Roles,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoUserRepo stores users in the users collection.
type MongoUserRepo struct{ coll *mongo.Collection }

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

// Create inserts u and returns it with the assigned id.
func (r *MongoUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	now := time.Now().UTC()
	doc := userDoc{
		ID:        bson.NewObjectID(),
		Email:     u.Email,
		Name:      u.Name,
		Surname:   u.Surname,
		Password:  u.PasswordHash,
		Roles:     u.Roles,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return model.User{}, mongoErr("insert user", err)
	}
	return doc.model(), nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (model.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return model.User{}, mongoErr("find user", err)
	}
	return doc.model(), nil
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.User{}, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) GetByName(ctx context.Context, name string) (model.User, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *MongoUserRepo) List(ctx context.Context) ([]model.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, mongoErr("list users", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode users", err)
	}
	out := make([]model.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// Update replaces the mutable fields of u if the stored version still
// equals u.Version.
func (r *MongoUserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	oid, err := objectID(u.ID)
	if err != nil {
		return model.User{}, err
	}
	set := bson.M{
		"email":      u.Email,
		"name":       u.Name,
		"surname":    u.Surname,
		"password":   u.PasswordHash,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if u.Roles == nil {
		update["$unset"] = bson.M{"roles": ""}
	} else {
		set["roles"] = u.Roles
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid, "version": u.Version}, update)
	if err != nil {
		return model.User{}, mongoErr("update user", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return model.User{}, mongoErr("count user", err)
		}
		if n == 0 {
			return model.User{}, ErrNotFound
		}
		return model.User{}, ErrVersionConflict
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepo) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete user", err)
	}
	if res.DeletedCount < 1 {
		return ErrNotFound
	}
	return nil
}
