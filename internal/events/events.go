// Package events define los eventos de ciclo de vida de una orden y el
// contrato de publicación. Las implementaciones viven en rabbit y kafka.
package events

import (
	"context"
	"time"

	"storefront-service/internal/model"

	"github.com/google/uuid"
)

const (
	OrderPlaced    = "order.placed"
	OrderPaid      = "order.paid"
	OrderDelivered = "order.delivered"
)

type OrderEvent struct {
	EventID    string       `json:"eventId"`
	Type       string       `json:"type"`
	OrderID    string       `json:"orderId"`
	UserID     string       `json:"userId"`
	TotalPrice model.Amount `json:"totalPrice"`
	OccurredAt time.Time    `json:"occurredAt"`
}

func NewOrderEvent(eventType string, o *model.Order, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OrderID:    o.ID.Hex(),
		UserID:     o.UserID.Hex(),
		TotalPrice: o.TotalPrice,
		OccurredAt: at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// Nop descarta los eventos (EVENTS_DRIVER=none).
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
