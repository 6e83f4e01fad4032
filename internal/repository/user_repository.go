package repository

import (
	"context"
	"time"

	"storefront-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	IsAdmin      *bool
}

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(usersCollection)}
}

func (m *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := m.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (m *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (m *MongoUserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	return findAll[model.User](ctx, m.col, bson.M{"_id": bson.M{"$in": ids}})
}

func (m *MongoUserRepository) FindAll(ctx context.Context) ([]*model.User, error) {
	return findAll[model.User](ctx, m.col, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (m *MongoUserRepository) Update(ctx context.Context, id primitive.ObjectID, u UserUpdate) (*model.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Username != nil {
		set["username"] = *u.Username
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.PasswordHash != nil {
		set["password"] = *u.PasswordHash
	}
	if u.IsAdmin != nil {
		set["isAdmin"] = *u.IsAdmin
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out model.User
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &out, nil
}

func (m *MongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
