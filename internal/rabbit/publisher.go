package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront-service/internal/events"

	"github.com/rabbitmq/amqp091-go"
)

const OrderEventsExchange = "order_events"

// Channel es la parte de *amqp091.Channel que usa el paquete.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher publica los eventos de orden en el exchange fanout order_events.
// Un canal AMQP no es seguro para publicar desde varias goroutines.
type Publisher struct {
	mu sync.Mutex
	ch Channel
}

func NewPublisher(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(OrderEventsExchange, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", OrderEventsExchange, err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, ev events.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, OrderEventsExchange, ev.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
}
