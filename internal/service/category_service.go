package service

import (
	"context"
	"errors"
	"strings"

	"storefront-service/internal/model"
	"storefront-service/internal/repository"
)

type CategoryService struct {
	categories CategoryRepository
}

func NewCategoryService(categories CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) List(ctx context.Context) ([]*model.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *CategoryService) Get(ctx context.Context, categoryID string) (*model.Category, error) {
	id, err := parseID("Category", categoryID)
	if err != nil {
		return nil, err
	}
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Category", categoryID)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("Name is required")
	}
	c := &model.Category{Name: name}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "Category already exists"}
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Rename(ctx context.Context, categoryID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("Name is required")
	}
	id, err := parseID("Category", categoryID)
	if err != nil {
		return nil, err
	}
	c, err := s.categories.Rename(ctx, id, name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "Category already exists"}
		}
		return nil, notFound(err, "Category", categoryID)
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, categoryID string) (*model.Category, error) {
	c, err := s.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Delete(ctx, c.ID); err != nil {
		return nil, notFound(err, "Category", categoryID)
	}
	return c, nil
}
