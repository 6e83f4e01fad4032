package repository

import (
	"context"

	"storefront-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const categoriesCollection = "categories"

type MongoCategoryRepository struct {
	col *mongo.Collection
}

func NewMongoCategoryRepository(db *mongo.Database) *MongoCategoryRepository {
	return &MongoCategoryRepository{col: db.Collection(categoriesCollection)}
}

func (m *MongoCategoryRepository) FindAll(ctx context.Context) ([]*model.Category, error) {
	return findAll[model.Category](ctx, m.col, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (m *MongoCategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Category, error) {
	var c model.Category
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, notFoundOr(err)
	}
	return &c, nil
}

func (m *MongoCategoryRepository) Create(ctx context.Context, c *model.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := m.col.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoCategoryRepository) Rename(ctx context.Context, id primitive.ObjectID, name string) (*model.Category, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c model.Category
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"name": name}}, opts).Decode(&c)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &c, nil
}

func (m *MongoCategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
