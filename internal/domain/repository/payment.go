package repository

import (
	"context"

	"github.com/velostore/ordercore/internal/domain/model"
)

// PaymentRepository persists the 1:1 payment record of an order.
type PaymentRepository interface {
	// GetOrCreate returns the payment for the order, creating a PENDING one
	// with the given amount if none exists yet.
	GetOrCreate(ctx context.Context, orderID int64, amount float64) (*model.Payment, error)
	GetByOrder(ctx context.Context, orderID int64) (*model.Payment, error)

	// MarkPaid and MarkFailed are guarded: they only apply when the current
	// status is still PENDING, and report whether a row was changed.
	MarkPaid(ctx context.Context, paymentID int64, transactionID, bankCode, rawCallback string) (bool, error)
	MarkFailed(ctx context.Context, paymentID int64, rawCallback string) (bool, error)
	MarkCODCollected(ctx context.Context, paymentID int64) (bool, error)
}
