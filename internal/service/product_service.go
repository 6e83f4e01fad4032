package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	productsPageSize = 12
	topProducts      = 4
	newProducts      = 5
)

type ProductService struct {
	products   ProductRepository
	categories CategoryRepository
	cache      ProductCache
	logger     *zap.Logger
	now        func() time.Time
}

func NewProductService(products ProductRepository, categories CategoryRepository, cache ProductCache, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products:   products,
		categories: categories,
		cache:      cache,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProductService) List(ctx context.Context, keyword string, page int) (*dto.ProductPage, error) {
	page = normalizePage(page)
	items, total, err := s.products.FindPage(ctx, repository.ProductQuery{
		Keyword: strings.TrimSpace(keyword),
		Page:    repository.Page{Number: page, Size: productsPageSize},
	})
	if err != nil {
		return nil, err
	}
	p := newPaged(items, page, productsPageSize, total)
	return &dto.ProductPage{Products: p.Items, Page: p.Page, Pages: p.Pages, HasMore: p.HasMore}, nil
}

// Get lee primero del cache; un error de Redis no corta la lectura.
func (s *ProductService) Get(ctx context.Context, productID string) (*model.Product, error) {
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, productID); err == nil {
			return p, nil
		}
	}

	id, err := parseID("Product", productID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product", productID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.Warn("Failed to cache product", zap.String("product_id", productID), zap.Error(err))
		}
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error) {
	catID, err := s.categoryID(ctx, req.Category)
	if err != nil {
		return nil, err
	}
	if req.Price == nil || req.Price.IsNegative() {
		return nil, validationf("Price is required")
	}

	stock := req.Quantity
	if req.CountInStock != nil {
		stock = *req.CountInStock
	}
	p := &model.Product{
		Name:         strings.TrimSpace(req.Name),
		Image:        req.Image,
		Brand:        req.Brand,
		Description:  req.Description,
		Price:        *req.Price,
		CategoryID:   catID,
		Quantity:     req.Quantity,
		CountInStock: stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.String("product_id", p.ID.Hex()))
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, productID string, req dto.UpdateProductRequest) (*model.Product, error) {
	id, err := parseID("Product", productID)
	if err != nil {
		return nil, err
	}

	up := repository.ProductUpdate{
		Name:         req.Name,
		Image:        req.Image,
		Brand:        req.Brand,
		Description:  req.Description,
		Price:        req.Price,
		Quantity:     req.Quantity,
		CountInStock: req.CountInStock,
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, validationf("Price must not be negative")
	}
	if req.Category != nil {
		catID, err := s.categoryID(ctx, *req.Category)
		if err != nil {
			return nil, err
		}
		up.CategoryID = &catID
	}

	p, err := s.products.Update(ctx, id, up)
	if err != nil {
		return nil, notFound(err, "Product", productID)
	}
	s.invalidate(ctx, productID)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, productID string) error {
	id, err := parseID("Product", productID)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return notFound(err, "Product", productID)
	}
	s.invalidate(ctx, productID)
	return nil
}

// AllProducts devuelve los 12 más nuevos con la categoría completa.
func (s *ProductService) AllProducts(ctx context.Context) ([]dto.ProductWithCategory, error) {
	items, err := s.products.FindNewest(ctx, productsPageSize)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	out := make([]dto.ProductWithCategory, len(items))
	for i, p := range items {
		out[i] = dto.ProductWithCategory{Product: p, Category: byID[p.CategoryID]}
	}
	return out, nil
}

// AddReview agrega una reseña por usuario y recalcula el promedio.
func (s *ProductService) AddReview(ctx context.Context, productID string, user *AuthUser, req dto.ReviewRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return validationf("Rating must be between 1 and 5")
	}
	id, err := parseID("Product", productID)
	if err != nil {
		return err
	}
	review := model.Review{
		UserID:    user.ID,
		Name:      user.Username,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: s.now(),
	}
	// el guard de una reseña por usuario lo aplica el repositorio
	if err := s.products.AddReview(ctx, id, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return validationf("Product already reviewed")
		}
		return notFound(err, "Product", productID)
	}
	s.invalidate(ctx, productID)
	return nil
}

func (s *ProductService) Top(ctx context.Context) ([]*model.Product, error) {
	return s.products.FindTopRated(ctx, topProducts)
}

func (s *ProductService) Newest(ctx context.Context) ([]*model.Product, error) {
	return s.products.FindNewest(ctx, newProducts)
}

// Filter filtra por categorías y rango [min, max]. Ids inválidos se ignoran.
func (s *ProductService) Filter(ctx context.Context, req dto.FilterProductsRequest) ([]*model.Product, error) {
	var f repository.ProductFilter
	for _, hex := range req.Checked {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			f.CategoryIDs = append(f.CategoryIDs, id)
		}
	}
	if len(req.Radio) > 0 {
		lo := req.Radio[0]
		f.MinPrice = &lo
	}
	if len(req.Radio) > 1 {
		hi := req.Radio[1]
		f.MaxPrice = &hi
	}
	return s.products.FindFiltered(ctx, f)
}

func (s *ProductService) categoryID(ctx context.Context, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, validationf("Invalid category: %s", hex)
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, validationf("Invalid category: %s", hex)
		}
		return primitive.NilObjectID, err
	}
	return id, nil
}

func (s *ProductService) invalidate(ctx context.Context, ids ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Strings("product_ids", ids), zap.Error(err))
	}
}
