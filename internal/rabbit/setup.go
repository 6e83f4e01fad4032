// setup.go
package rabbit

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	PaymentCapturedExchange = "payment_captured"
	PaymentCapturedQueue    = "storefront_payment_captured"
)

// SetupConsumers declara la cola, la bindea al exchange fanout y consume en
// una goroutine hasta que ctx se cancele o se cierre el canal.
func SetupConsumers(ctx context.Context, ch Channel, consumer *PaymentCapturedConsumer, logger *zap.Logger) error {
	// 1. Declarar exchange y queue
	if err := ch.ExchangeDeclare(PaymentCapturedExchange, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(
		PaymentCapturedQueue, // cola exclusiva del storefront
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 2. Bindear al exchange fanout
	if err := ch.QueueBind(q.Name, "", PaymentCapturedExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// 3. Consumir con ack manual, de a un mensaje
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}

	go consume(ctx, msgs, consumer, logger)

	logger.Info("Subscribed to exchange", zap.String("exchange", PaymentCapturedExchange), zap.String("queue", q.Name))
	return nil
}

// Acknowledger abstrae el ack/nack de un delivery.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func consume(ctx context.Context, msgs <-chan amqp091.Delivery, consumer *PaymentCapturedConsumer, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				logger.Warn("payment_captured delivery channel closed")
				return
			}
			settle(ctx, &m, m.Body, consumer, logger)
		}
	}
}

func settle(ctx context.Context, ack Acknowledger, body []byte, consumer *PaymentCapturedConsumer, logger *zap.Logger) {
	err := consumer.Handle(ctx, body)
	if err == nil {
		if err := ack.Ack(false); err != nil {
			logger.Error("Ack failed", zap.Error(err))
		}
		return
	}
	if err := ack.Nack(false, Requeue(err)); err != nil {
		logger.Error("Nack failed", zap.Error(err))
	}
}
