package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/role-auth/internal/model"
)

type roleDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Description string        `bson:"description"`
}

func (d roleDoc) model() model.Role {
	return model.Role{ID: d.ID.Hex(), Name: d.Name, Description: d.Description}
}

type MongoRoleRepo struct{ coll *mongo.Collection }

func NewMongoRoleRepo(db *mongo.Database) *MongoRoleRepo {
	return &MongoRoleRepo{coll: db.Collection(rolesCollection)}
}

func (r *MongoRoleRepo) Create(ctx context.Context, role model.Role) (model.Role, error) {
	doc := roleDoc{ID: bson.NewObjectID(), Name: role.Name, Description: role.Description}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return model.Role{}, mongoErr("insert role", err)
	}
	return doc.model(), nil
}

func (r *MongoRoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	var doc roleDoc
	if err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		return model.Role{}, mongoErr("find role", err)
	}
	return doc.model(), nil
}

func (r *MongoRoleRepo) List(ctx context.Context) ([]model.Role, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, mongoErr("list roles", err)
	}
	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode roles", err)
	}
	out := make([]model.Role, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *MongoRoleRepo) Update(ctx context.Context, name string, role model.Role) (model.Role, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"name": name},
		bson.M{"$set": bson.M{"name": role.Name, "description": role.Description}})
	if err != nil {
		return model.Role{}, mongoErr("update role", err)
	}
	if res.MatchedCount == 0 {
		return model.Role{}, ErrNotFound
	}
	return r.GetByName(ctx, role.Name)
}

func (r *MongoRoleRepo) Delete(ctx context.Context, name string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return mongoErr("delete role", err)
	}
	if res.DeletedCount < 1 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRoleRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, mongoErr("delete roles", err)
	}
	return res.DeletedCount, nil
}
