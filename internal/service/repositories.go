package service

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interfaces que deben implementar los repositorios (Mongo o memoria)

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, result model.PaymentResult, at time.Time) error
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error
	FindPage(ctx context.Context, q repository.OrderQuery) ([]*model.Order, int64, error)
	Count(ctx context.Context) (int64, error)
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	SalesByDate(ctx context.Context) ([]model.DailySales, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Product, error)
	FindPage(ctx context.Context, q repository.ProductQuery) ([]*model.Product, int64, error)
	FindNewest(ctx context.Context, limit int) ([]*model.Product, error)
	FindTopRated(ctx context.Context, limit int) ([]*model.Product, error)
	FindFiltered(ctx context.Context, f repository.ProductFilter) ([]*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, id primitive.ObjectID, u repository.ProductUpdate) (*model.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddReview(ctx context.Context, id primitive.ObjectID, review model.Review) error
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type CategoryRepository interface {
	FindAll(ctx context.Context) ([]*model.Category, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Rename(ctx context.Context, id primitive.ObjectID, name string) (*model.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error)
	FindAll(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, id primitive.ObjectID, u repository.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Transactor agrupa varias escrituras en una unidad de trabajo: o se aplican
// todas o ninguna.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductCache es opcional; nil desactiva el cache.
type ProductCache interface {
	Get(ctx context.Context, id string) (*model.Product, error)
	Set(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, ids ...string) error
}

// Paged es la forma de las respuestas paginadas del listado.
type Paged[T any] struct {
	Items   []T
	Page    int
	Pages   int
	HasMore bool
}

func newPaged[T any](items []T, page, size int, total int64) Paged[T] {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Paged[T]{Items: items, Page: page, Pages: pages, HasMore: page < pages}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// parseID convierte un hex en ObjectID; un id mal formado es un "no existe".
func parseID(resource, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, &NotFoundError{Resource: resource, ID: hex}
	}
	return id, nil
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}
