package repository

import (
	"context"
	"time"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
)

// OrderUpdate carries the mutable fields written by one applied transition.
// Nil pointer fields are left untouched.
type OrderUpdate struct {
	Status       status.Status
	PaymentState *model.PaymentState
	ClearLock    bool
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CompletedAt  *time.Time
	RefundedAt   *time.Time
}

// OrderRepository persists orders, their item snapshots, and the append-only
// status history.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)

	// ApplyTransition writes the status change, its timestamps, and the
	// history row in one transaction. History is never updated or deleted.
	// The write applies only while the order is still in change.FromStatus;
	// a concurrent transition that moved it first makes this one fail with
	// ErrConflict.
	ApplyTransition(ctx context.Context, orderID int64, upd OrderUpdate, change model.StatusChange) error

	History(ctx context.Context, orderID int64) ([]model.StatusChange, error)

	// SetPaymentState writes the payment axis without touching status, for
	// payment outcomes that deliberately leave the fulfillment state alone.
	SetPaymentState(ctx context.Context, orderID int64, state model.PaymentState) error

	// Delete removes an order that was never exposed to anyone, aborting a
	// creation whose stock reservation failed. Not used anywhere else.
	Delete(ctx context.Context, orderID int64) error

	// Sweep queries. Each returns orders stuck past the given deadline.
	ListExpiredPendingPayment(ctx context.Context, now time.Time, limit int) ([]model.Order, error)
	ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	ListRefundedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
}
