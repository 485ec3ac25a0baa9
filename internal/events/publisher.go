package events

import (
	"context"
	"time"

	"github.com/velostore/ordercore/internal/domain/status"
)

// Event types emitted by the order pipeline.
const (
	TypeOrderCreated       = "OrderCreated"
	TypeOrderStatusUpdated = "OrderStatusUpdated"
	TypeOrderCancelled     = "OrderCancelled"
)

// Envelope wraps every emitted event with routing metadata.
type Envelope struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Producer   string    `json:"producer"`
	OrderID    int64     `json:"order_id"`
	OrderNo    string    `json:"order_no"`
}

// OrderCreatedPayload announces a new durable order.
type OrderCreatedPayload struct {
	Envelope
	UserID int64         `json:"user_id"`
	Total  float64       `json:"total"`
	Status status.Status `json:"status"`
}

// StatusUpdatedPayload announces one applied transition.
type StatusUpdatedPayload struct {
	Envelope
	FromStatus status.Status `json:"from_status"`
	ToStatus   status.Status `json:"to_status"`
}

// Publisher is the outbound event sink. Delivery is best effort and happens
// after the state mutation commits; a sink failure never rolls back or
// fails the business operation that triggered it.
type Publisher interface {
	OrderCreated(ctx context.Context, p OrderCreatedPayload)
	OrderStatusUpdated(ctx context.Context, p StatusUpdatedPayload)
	OrderCancelled(ctx context.Context, p StatusUpdatedPayload)
}

// Noop discards every event; used when no broker is configured and in tests.
type Noop struct{}

func (Noop) OrderCreated(context.Context, OrderCreatedPayload)        {}
func (Noop) OrderStatusUpdated(context.Context, StatusUpdatedPayload) {}
func (Noop) OrderCancelled(context.Context, StatusUpdatedPayload)     {}
