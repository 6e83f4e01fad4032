package controller

import (
	"net/http"
	"strconv"

	"storefront-service/internal/dto"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderController struct {
	Service *service.OrderService
	logger  *zap.Logger
}

func NewOrderController(s *service.OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{Service: s, logger: logger}
}

// POST /api/orders
func (ctl *OrderController) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	order, err := ctl.Service.PlaceOrder(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	middleware.RecordOrderPlaced()
	c.JSON(http.StatusCreated, order)
}

// GET /api/orders?page= (admin)
func (ctl *OrderController) List(c *gin.Context) {
	page, err := ctl.Service.ListOrders(c.Request.Context(), pageParam(c))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/orders/mine?page=
func (ctl *OrderController) Mine(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, err := ctl.Service.ListUserOrders(c.Request.Context(), user.ID, pageParam(c))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/orders/:id (dueño o admin)
func (ctl *OrderController) Get(c *gin.Context) {
	order, err := ctl.Service.GetOrder(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PUT /api/orders/:id/pay
func (ctl *OrderController) Pay(c *gin.Context) {
	var req dto.PaymentResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := ctl.Service.PayOrder(c.Request.Context(), c.Param("id"), req.ToModel())
	middleware.RecordSettlement("payment", err)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PUT /api/orders/:id/deliver (admin)
func (ctl *OrderController) Deliver(c *gin.Context) {
	order, err := ctl.Service.DeliverOrder(c.Request.Context(), c.Param("id"))
	middleware.RecordSettlement("delivery", err)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/orders/total-orders (admin)
func (ctl *OrderController) TotalOrders(c *gin.Context) {
	total, err := ctl.Service.TotalOrders(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.TotalOrdersResponse{TotalOrders: total})
}

// GET /api/orders/total-sales (admin)
func (ctl *OrderController) TotalSales(c *gin.Context) {
	total, err := ctl.Service.TotalSales(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.TotalSalesResponse{TotalSales: total})
}

// GET /api/orders/total-sales-by-date (admin)
func (ctl *OrderController) SalesByDate(c *gin.Context) {
	sales, err := ctl.Service.SalesByDate(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1
	}
	return page
}
