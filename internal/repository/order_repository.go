package repository

import (
	"context"
	"time"

	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

// OrderQuery filtra el listado paginado. UserID nil lista todas.
type OrderQuery struct {
	UserID *primitive.ObjectID
	Page   Page
}

type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection(ordersCollection)}
}

func (m *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	_, err := m.col.InsertOne(ctx, o)
	return err
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var res model.Order
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, notFoundOr(err)
	}
	return &res, nil
}

// MarkPaid sólo actualiza si la orden todavía no está paga; es el
// compare-and-swap que evita liquidar dos veces la misma orden.
func (m *MongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, result model.PaymentResult, at time.Time) error {
	filter := bson.M{"_id": id, "isPaid": false}
	update := bson.M{
		"$set": bson.M{
			"isPaid":        true,
			"paidAt":        at,
			"paymentResult": result,
			"updatedAt":     at,
		},
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return missingOr(ctx, m.col, id, ErrAlreadyPaid)
	}
	return nil
}

func (m *MongoOrderRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"isDelivered": true,
			"deliveredAt": at,
			"updatedAt":   at,
		},
	}

	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoOrderRepository) FindPage(ctx context.Context, q OrderQuery) ([]*model.Order, int64, error) {
	filter := bson.M{}
	if q.UserID != nil {
		filter["user"] = *q.UserID
	}

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(q.Page.skip()).
		SetLimit(int64(q.Page.Size))

	orders, err := findAll[model.Order](ctx, m.col, filter, opts)
	return orders, total, err
}

func (m *MongoOrderRepository) Count(ctx context.Context) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{})
}

func (m *MongoOrderRepository) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalPrice"}}}},
	}

	cur, err := m.col.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total model.Amount `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return decimal.Zero, err
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].Total.Decimal, nil
}

// SalesByDate agrupa las órdenes pagas por día de pago.
func (m *MongoOrderRepository) SalesByDate(ctx context.Context) ([]model.DailySales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isPaid": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$paidAt"}},
			"totalSales": bson.M{"$sum": "$totalPrice"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cur, err := m.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []model.DailySales{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
