// Package memory implementa los repositorios en memoria. Se usa con
// STORE_DRIVER=memory para correr el servicio sin Mongo y en los tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users      map[primitive.ObjectID]model.User
	categories map[primitive.ObjectID]model.Category
	products   map[primitive.ObjectID]model.Product
	orders     map[primitive.ObjectID]model.Order

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:      map[primitive.ObjectID]model.User{},
		categories: map[primitive.ObjectID]model.Category{},
		products:   map[primitive.ObjectID]model.Product{},
		orders:     map[primitive.ObjectID]model.Order{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() *UserRepository          { return &UserRepository{s: s} }
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }
func (s *Store) Products() *ProductRepository    { return &ProductRepository{s: s} }
func (s *Store) Orders() *OrderRepository        { return &OrderRepository{s: s} }

// WithTransaction serializa las transacciones y restaura el estado previo
// si fn devuelve error.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	users := maps.Clone(s.users)
	categories := maps.Clone(s.categories)
	products := maps.Clone(s.products)
	orders := maps.Clone(s.orders)
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users, s.categories, s.products, s.orders = users, categories, products, orders
		s.mu.Unlock()
		return err
	}
	return nil
}

// ---- users

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *UserRepository) FindAll(_ context.Context) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, id primitive.ObjectID, up repository.UserUpdate) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if up.Email != nil {
		for otherID, other := range r.s.users {
			if otherID != id && strings.EqualFold(other.Email, *up.Email) {
				return nil, repository.ErrDuplicate
			}
		}
		u.Email = *up.Email
	}
	if up.Username != nil {
		u.Username = *up.Username
	}
	if up.PasswordHash != nil {
		u.PasswordHash = *up.PasswordHash
	}
	if up.IsAdmin != nil {
		u.IsAdmin = *up.IsAdmin
	}
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return &u, nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

// ---- categories

type CategoryRepository struct{ s *Store }

func (r *CategoryRepository) FindAll(_ context.Context) ([]*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) Create(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.categories {
		if existing.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Rename(_ context.Context, id primitive.ObjectID, name string) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range r.s.categories {
		if otherID != id && other.Name == name {
			return nil, repository.ErrDuplicate
		}
	}
	c.Name = name
	r.s.categories[id] = c
	return &c, nil
}

func (r *CategoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

// ---- products

type ProductRepository struct{ s *Store }

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Product{}
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.s.products[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *ProductRepository) sorted(less func(a, b *model.Product) bool, keep func(*model.Product) bool) []*model.Product {
	out := []*model.Product{}
	for _, p := range r.s.products {
		if keep == nil || keep(&p) {
			out = append(out, &p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b *model.Product) bool { return a.CreatedAt.After(b.CreatedAt) }

func (r *ProductRepository) FindPage(_ context.Context, q repository.ProductQuery) ([]*model.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	keyword := strings.ToLower(q.Keyword)
	all := r.sorted(newestFirst, func(p *model.Product) bool {
		return keyword == "" || strings.Contains(strings.ToLower(p.Name), keyword)
	})
	return paginate(all, q.Page), int64(len(all)), nil
}

func (r *ProductRepository) FindNewest(_ context.Context, limit int) ([]*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return head(r.sorted(newestFirst, nil), limit), nil
}

func (r *ProductRepository) FindTopRated(_ context.Context, limit int) ([]*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return head(r.sorted(func(a, b *model.Product) bool { return a.Rating > b.Rating }, nil), limit), nil
}

func (r *ProductRepository) FindFiltered(_ context.Context, f repository.ProductFilter) ([]*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.sorted(newestFirst, func(p *model.Product) bool {
		if len(f.CategoryIDs) > 0 {
			match := false
			for _, id := range f.CategoryIDs {
				if id == p.CategoryID {
					match = true
					break
				}
			}
			if !match {
				return false
			}
		}
		if f.MinPrice != nil && p.Price.LessThan(f.MinPrice.Decimal) {
			return false
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(f.MaxPrice.Decimal) {
			return false
		}
		return true
	}), nil
}

func (r *ProductRepository) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []model.Review{}
	}
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) Update(_ context.Context, id primitive.ObjectID, u repository.ProductUpdate) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.CategoryID != nil {
		p.CategoryID = *u.CategoryID
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.CountInStock != nil {
		p.CountInStock = *u.CountInStock
	}
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return &p, nil
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) AddReview(_ context.Context, id primitive.ObjectID, review model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	sum := 0
	for _, existing := range p.Reviews {
		if existing.UserID == review.UserID {
			return repository.ErrDuplicate
		}
		sum += existing.Rating
	}
	p.Reviews = append(append([]model.Review(nil), p.Reviews...), review)
	p.NumReviews = len(p.Reviews)
	p.Rating = float64(sum+review.Rating) / float64(p.NumReviews)
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

func (r *ProductRepository) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.CountInStock < qty || p.Quantity < qty {
		return repository.ErrInsufficientStock
	}
	p.CountInStock -= qty
	p.Quantity -= qty
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

// ---- orders

type OrderRepository struct{ s *Store }

func (r *OrderRepository) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.s.now()
	}
	o.UpdatedAt = o.CreatedAt
	o.OrderItems = append([]model.OrderItem(nil), o.OrderItems...)
	r.s.orders[o.ID] = *o
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *OrderRepository) MarkPaid(_ context.Context, id primitive.ObjectID, result model.PaymentResult, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if o.IsPaid {
		return repository.ErrAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &result
	o.UpdatedAt = at
	r.s.orders[id] = o
	return nil
}

func (r *OrderRepository) MarkDelivered(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.IsDelivered = true
	o.DeliveredAt = &at
	o.UpdatedAt = at
	r.s.orders[id] = o
	return nil
}

func (r *OrderRepository) FindPage(_ context.Context, q repository.OrderQuery) ([]*model.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := []*model.Order{}
	for _, o := range r.s.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		all = append(all, &o)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, q.Page), int64(len(all)), nil
}

func (r *OrderRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.orders)), nil
}

func (r *OrderRepository) TotalSales(_ context.Context) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := decimal.Zero
	for _, o := range r.s.orders {
		total = total.Add(o.TotalPrice.Decimal)
	}
	return total, nil
}

func (r *OrderRepository) SalesByDate(_ context.Context) ([]model.DailySales, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byDay := map[string]decimal.Decimal{}
	for _, o := range r.s.orders {
		if !o.IsPaid || o.PaidAt == nil {
			continue
		}
		day := o.PaidAt.UTC().Format("2006-01-02")
		byDay[day] = byDay[day].Add(o.TotalPrice.Decimal)
	}

	out := make([]model.DailySales, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, model.DailySales{Date: day, TotalSales: model.NewAmount(total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func paginate[T any](all []*T, p repository.Page) []*T {
	if p.Size <= 0 {
		return all
	}
	n := p.Number
	if n < 1 {
		n = 1
	}
	start := (n - 1) * p.Size
	if start >= len(all) {
		return []*T{}
	}
	end := start + p.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func head[T any](all []*T, limit int) []*T {
	if limit > 0 && len(all) > limit {
		return all[:limit]
	}
	return all
}
