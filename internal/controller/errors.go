package controller

import (
	"errors"
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError traduce los errores del servicio a status HTTP. Lo que no es
// un error de negocio se loguea y sale como 500 genérico.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		stock      *service.InsufficientStockError
		conflict   *service.ConflictError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &stock), errors.Is(err, service.ErrAlreadyPaid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view this order"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
