package controller

import (
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CategoryController struct {
	Service *service.CategoryService
	logger  *zap.Logger
}

func NewCategoryController(s *service.CategoryService, logger *zap.Logger) *CategoryController {
	return &CategoryController{Service: s, logger: logger}
}

func (ctl *CategoryController) List(c *gin.Context) {
	cats, err := ctl.Service.List(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (ctl *CategoryController) Get(c *gin.Context) {
	cat, err := ctl.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (ctl *CategoryController) Create(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := ctl.Service.Create(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (ctl *CategoryController) Update(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := ctl.Service.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (ctl *CategoryController) Delete(c *gin.Context) {
	cat, err := ctl.Service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}
