package repository

import (
	"context"
	"regexp"
	"time"

	"storefront-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productsCollection = "products"

type ProductQuery struct {
	Keyword string
	Page    Page
}

// ProductFilter es el filtro de la tienda: categorías y rango de precio.
type ProductFilter struct {
	CategoryIDs []primitive.ObjectID
	MinPrice    *model.Amount
	MaxPrice    *model.Amount
}

// ProductUpdate sólo aplica los campos no nil.
type ProductUpdate struct {
	Name         *string
	Image        *string
	Brand        *string
	Description  *string
	Price        *model.Amount
	CategoryID   *primitive.ObjectID
	Quantity     *int
	CountInStock *int
}

func (u ProductUpdate) toSet() bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.Brand != nil {
		set["brand"] = *u.Brand
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.CategoryID != nil {
		set["category"] = *u.CategoryID
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.CountInStock != nil {
		set["countInStock"] = *u.CountInStock
	}
	return set
}

type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection(productsCollection)}
}

func (m *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	var p model.Product
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFoundOr(err)
	}
	return &p, nil
}

// FindByIDs hace una sola consulta $in; los ids que no existen simplemente
// no aparecen en el resultado.
func (m *MongoProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Product, error) {
	if len(ids) == 0 {
		return []*model.Product{}, nil
	}
	return findAll[model.Product](ctx, m.col, bson.M{"_id": bson.M{"$in": ids}})
}

func (m *MongoProductRepository) FindPage(ctx context.Context, q ProductQuery) ([]*model.Product, int64, error) {
	filter := bson.M{}
	if q.Keyword != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Keyword), Options: "i"}
	}

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(q.Page.skip()).
		SetLimit(int64(q.Page.Size))

	products, err := findAll[model.Product](ctx, m.col, filter, opts)
	return products, total, err
}

func (m *MongoProductRepository) FindNewest(ctx context.Context, limit int) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	return findAll[model.Product](ctx, m.col, bson.M{}, opts)
}

func (m *MongoProductRepository) FindTopRated(ctx context.Context, limit int) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rating", Value: -1}}).SetLimit(int64(limit))
	return findAll[model.Product](ctx, m.col, bson.M{}, opts)
}

func (m *MongoProductRepository) FindFiltered(ctx context.Context, f ProductFilter) ([]*model.Product, error) {
	filter := bson.M{}
	if len(f.CategoryIDs) > 0 {
		filter["category"] = bson.M{"$in": f.CategoryIDs}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return findAll[model.Product](ctx, m.col, filter)
}

func (m *MongoProductRepository) Create(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []model.Review{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := m.col.InsertOne(ctx, p)
	return err
}

func (m *MongoProductRepository) Update(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*model.Product, error) {
	set := u.toSet()
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p model.Product
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &p, nil
}

func (m *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReview agrega la reseña sólo si el usuario no reseñó el producto y
// recalcula numReviews y rating en la misma escritura.
func (m *MongoProductRepository) AddReview(ctx context.Context, id primitive.ObjectID, review model.Review) error {
	filter := bson.M{"_id": id, "reviews.user": bson.M{"$ne": review.UserID}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reviews": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$reviews", bson.A{}}},
				bson.A{bson.M{"$literal": review}},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"numReviews": bson.M{"$size": "$reviews"},
			"rating":     bson.M{"$avg": "$reviews.rating"},
			"updatedAt":  time.Now().UTC(),
		}}},
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return missingOr(ctx, m.col, id, ErrDuplicate)
	}
	return nil
}

// DecrementStock descuenta qty de countInStock y quantity sólo si ambos
// alcanzan; nunca deja stock negativo.
func (m *MongoProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	filter := bson.M{
		"_id":          id,
		"countInStock": bson.M{"$gte": qty},
		"quantity":     bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"countInStock": -qty, "quantity": -qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return missingOr(ctx, m.col, id, ErrInsufficientStock)
	}
	return nil
}
