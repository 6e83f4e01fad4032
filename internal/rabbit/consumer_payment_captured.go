package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-service/internal/dto"
	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/internal/service"

	"go.uber.org/zap"
)

// OrderPayer es lo que el consumer necesita del OrderService.
type OrderPayer interface {
	PayOrder(ctx context.Context, orderID string, result model.PaymentResult) (*model.Order, error)
}

type PaymentCapturedConsumer struct {
	Service OrderPayer
	logger  *zap.Logger
}

func NewPaymentCapturedConsumer(s OrderPayer, logger *zap.Logger) *PaymentCapturedConsumer {
	return &PaymentCapturedConsumer{Service: s, logger: logger}
}

// PaymentCapturedMessage es el sobre que manda el proveedor de pagos.
type PaymentCapturedMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID string `json:"orderId"`
		dto.PaymentResultRequest
	} `json:"message"`
}

// ErrMalformed marca mensajes que no tiene sentido reintentar.
var ErrMalformed = errors.New("malformed message")

// Handle procesa un mensaje. Devuelve nil si hay que hacer ack (incluido el
// caso de una orden ya pagada), ErrMalformed o un error de negocio si hay que
// descartarlo, y cualquier otro error si hay que reencolarlo.
func (c *PaymentCapturedConsumer) Handle(ctx context.Context, msg []byte) error {
	var event PaymentCapturedMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		c.logger.Warn("Invalid payment_captured message", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if event.Message.OrderID == "" || event.Message.ID == "" {
		c.logger.Warn("payment_captured message without order or payment id",
			zap.String("correlation_id", event.CorrelationID))
		return ErrMalformed
	}

	log := c.logger.With(
		zap.String("correlation_id", event.CorrelationID),
		zap.String("order_id", event.Message.OrderID),
	)
	log.Info("Event received: payment_captured")

	_, err := c.Service.PayOrder(ctx, event.Message.OrderID, event.Message.ToModel())
	middleware.RecordSettlement("payment", err)
	switch {
	case err == nil:
		log.Info("Payment settled")
		return nil
	case errors.Is(err, service.ErrAlreadyPaid):
		log.Info("Order already paid, ignoring duplicate")
		return nil
	default:
		log.Error("Failed to settle payment", zap.Error(err))
		return err
	}
}

// Requeue dice si un error de Handle amerita reintentar el mensaje.
func Requeue(err error) bool {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		stock      *service.InsufficientStockError
	)
	switch {
	case err == nil,
		errors.Is(err, ErrMalformed),
		errors.As(err, &validation),
		errors.As(err, &notFound),
		errors.As(err, &stock):
		return false
	default:
		return true
	}
}
