package controller

import (
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductController struct {
	Service *service.ProductService
	logger  *zap.Logger
}

func NewProductController(s *service.ProductService, logger *zap.Logger) *ProductController {
	return &ProductController{Service: s, logger: logger}
}

// GET /api/products?keyword=&page=
func (ctl *ProductController) List(c *gin.Context) {
	page, err := ctl.Service.List(c.Request.Context(), c.Query("keyword"), pageParam(c))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ctl *ProductController) Get(c *gin.Context) {
	p, err := ctl.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *ProductController) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := ctl.Service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (ctl *ProductController) Update(c *gin.Context) {
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := ctl.Service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *ProductController) Delete(c *gin.Context) {
	if err := ctl.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

// GET /api/products/allproducts (admin)
func (ctl *ProductController) All(c *gin.Context) {
	items, err := ctl.Service.AllProducts(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// POST /api/products/:id/reviews
func (ctl *ProductController) AddReview(c *gin.Context) {
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := ctl.Service.AddReview(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review added"})
}

func (ctl *ProductController) Top(c *gin.Context) {
	items, err := ctl.Service.Top(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (ctl *ProductController) New(c *gin.Context) {
	items, err := ctl.Service.Newest(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// POST /api/products/filtered-products
func (ctl *ProductController) Filter(c *gin.Context) {
	var req dto.FilterProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	items, err := ctl.Service.Filter(c.Request.Context(), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
