package dto

import (
	"storefront-service/internal/model"
)

type CreateProductRequest struct {
	Name         string        `json:"name" binding:"required"`
	Description  string        `json:"description" binding:"required"`
	Price        *model.Amount `json:"price" binding:"required"`
	Category     string        `json:"category" binding:"required"`
	Quantity     int           `json:"quantity" binding:"required,gt=0"`
	Brand        string        `json:"brand" binding:"required"`
	Image        string        `json:"image"`
	CountInStock *int          `json:"countInStock" binding:"omitempty,gte=0"`
}

// UpdateProductRequest: los campos ausentes no se tocan.
type UpdateProductRequest struct {
	Name         *string       `json:"name"`
	Description  *string       `json:"description"`
	Price        *model.Amount `json:"price"`
	Category     *string       `json:"category"`
	Quantity     *int          `json:"quantity" binding:"omitempty,gte=0"`
	Brand        *string       `json:"brand"`
	Image        *string       `json:"image"`
	CountInStock *int          `json:"countInStock" binding:"omitempty,gte=0"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required"`
}

// FilterProductsRequest: checked son ids de categoría, radio es [min, max].
type FilterProductsRequest struct {
	Checked []string       `json:"checked"`
	Radio   []model.Amount `json:"radio" binding:"omitempty,max=2"`
}

type ProductPage struct {
	Products []*model.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	HasMore  bool             `json:"hasMore"`
}

// ProductWithCategory es un producto con la categoría completa.
type ProductWithCategory struct {
	*model.Product
	Category *model.Category `json:"category"`
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}
