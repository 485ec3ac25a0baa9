package model

import (
	"time"

	"github.com/velostore/ordercore/internal/domain/status"
)

// PaymentMethod selects how the buyer settles the order.
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodGateway      PaymentMethod = "GATEWAY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentState is the payment axis of an order, independent of its
// fulfillment status.
type PaymentState string

const (
	PaymentStateUnpaid       PaymentState = "UNPAID"
	PaymentStatePending      PaymentState = "PENDING"
	PaymentStatePaid         PaymentState = "PAID"
	PaymentStateFailed       PaymentState = "FAILED"
	PaymentStateCODCollected PaymentState = "COD_COLLECTED"
)

// Order is a durable purchase with a constrained lifecycle. Status moves
// only along transition-table edges and only through the orchestrator.
type Order struct {
	ID             int64
	Number         string
	UserID         int64
	AddressID      int64
	Subtotal       float64
	ShippingFee    float64
	DiscountAmount float64

	// PointsSpent is the loyalty balance tentatively redeemed at checkout,
	// one point per currency unit. Refunded when the order fails or is
	// cancelled before fulfillment.
	PointsSpent int64

	Total         float64
	Status        status.Status
	PaymentState  PaymentState
	PaymentMethod PaymentMethod
	Note          string

	// LockedUntil is the payment deadline while the order sits in
	// PENDING_PAYMENT; cleared once payment resolves.
	LockedUntil *time.Time

	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
	RefundedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem
}

// OrderItem is an immutable snapshot of what was bought, priced at
// order-creation time. Later catalog changes never touch it.
type OrderItem struct {
	ID          int64
	OrderID     int64
	VariantID   int64
	ProductName string
	VariantName string
	SKU         string
	UnitPrice   float64
	Quantity    int
}

// StatusChange is one append-only audit record of a transition.
type StatusChange struct {
	ID         int64
	OrderID    int64
	FromStatus status.Status
	ToStatus   status.Status
	Actor      status.Role
	Note       string
	CreatedAt  time.Time
}
