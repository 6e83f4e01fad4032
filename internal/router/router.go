// Package router arma el engine de gin con todas las rutas del storefront.
package router

import (
	"storefront-service/internal/controller"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type Services struct {
	Auth       *service.AuthService
	Users      *service.UserService
	Products   *service.ProductService
	Categories *service.CategoryService
	Orders     *service.OrderService
}

type Options struct {
	ServiceName    string
	CORSOrigins    []string
	PayPalClientID string
	SecureCookies  bool
}

func New(s Services, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// otelgin primero para que el resto vea el trace
	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.GET("/health", controller.Health)
	r.GET("/metrics", middleware.PrometheusHandler())

	users := controller.NewUserController(s.Auth, s.Users, opts.SecureCookies, logger)
	products := controller.NewProductController(s.Products, logger)
	categories := controller.NewCategoryController(s.Categories, logger)
	orders := controller.NewOrderController(s.Orders, logger)
	cfg := &controller.ConfigController{PayPalClientID: opts.PayPalClientID}

	authn := middleware.AuthMiddleware(s.Auth)
	admin := middleware.AdminOnly()

	api := r.Group("/api")

	// Rutas públicas
	api.POST("/auth/register", users.Register)
	api.POST("/auth/login", users.Login)
	api.POST("/auth/logout", users.Logout)
	api.GET("/config/paypal", cfg.PayPal)

	u := api.Group("/users", authn)
	u.GET("/profile", users.Profile)
	u.PUT("/profile", users.UpdateProfile)
	u.GET("", admin, users.List)
	u.GET("/:id", admin, users.Get)
	u.PUT("/:id", admin, users.Update)
	u.DELETE("/:id", admin, users.Delete)

	cat := api.Group("/category")
	cat.GET("/categories", authn, categories.List)
	cat.GET("/:id", categories.Get)
	cat.POST("", authn, admin, categories.Create)
	cat.PUT("/:id", authn, admin, categories.Update)
	cat.DELETE("/:id", authn, admin, categories.Delete)

	p := api.Group("/products")
	p.GET("", products.List)
	p.POST("", authn, admin, products.Create)
	p.GET("/allproducts", authn, admin, products.All)
	p.GET("/top", products.Top)
	p.GET("/new", products.New)
	p.POST("/filtered-products", products.Filter)
	p.POST("/:id/reviews", authn, products.AddReview)
	p.GET("/:id", products.Get)
	p.PUT("/:id", authn, admin, products.Update)
	p.DELETE("/:id", authn, admin, products.Delete)

	o := api.Group("/orders", authn)
	o.POST("", orders.Create)
	o.GET("", admin, orders.List)
	o.GET("/mine", orders.Mine)
	o.GET("/total-orders", admin, orders.TotalOrders)
	o.GET("/total-sales", admin, orders.TotalSales)
	o.GET("/total-sales-by-date", admin, orders.SalesByDate)
	o.GET("/:id", orders.Get)
	o.PUT("/:id/pay", orders.Pay)
	o.PUT("/:id/deliver", admin, orders.Deliver)

	return r
}
