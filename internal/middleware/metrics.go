package middleware

import (
	"errors"
	"strconv"
	"time"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersPlacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	ordersSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_settled_total",
			Help: "Total number of payment and delivery settlements",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(ordersPlacedTotal)
	prometheus.MustRegister(ordersSettledTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			// sin ruta: una sola serie para no abrir cardinalidad por URL
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordOrderPlaced() {
	ordersPlacedTotal.Inc()
}

// RecordSettlement cuenta pagos y entregas. kind: "payment" | "delivery".
func RecordSettlement(kind string, err error) {
	ordersSettledTotal.WithLabelValues(kind, settlementResult(err)).Inc()
}

func settlementResult(err error) string {
	var (
		stock    *service.InsufficientStockError
		notFound *service.NotFoundError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, service.ErrAlreadyPaid):
		return "already_paid"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &notFound):
		return "not_found"
	default:
		return "error"
	}
}
