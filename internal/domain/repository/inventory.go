package repository

import (
	"context"
	"time"

	"github.com/velostore/ordercore/internal/domain/model"
)

// ItemQuantity pairs a variant with a requested or reserved quantity.
type ItemQuantity struct {
	VariantID int64
	Quantity  int
}

// InventoryRepository mutates the two stock counters and the reservation
// records. Each mutating call is one database transaction scoped to the
// affected variant rows, with FOR UPDATE row locking; no other code path
// writes stock or available_stock.
type InventoryRepository interface {
	GetVariant(ctx context.Context, variantID int64) (*model.ProductVariant, error)
	GetVariants(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error)

	// ReserveVariant atomically checks available_stock, decrements it, and
	// inserts the reservation row. Fails with ErrInsufficientStock without
	// side effects when the check fails.
	ReserveVariant(ctx context.Context, variantID, orderID int64, qty int, lockKey, lockToken string, expiresAt time.Time) error

	// ReleaseReservations puts available_stock back for every reservation of
	// the order and deletes the rows. Returns the released reservations;
	// empty result means there was nothing left to release.
	ReleaseReservations(ctx context.Context, orderID int64) ([]model.StockReservation, error)

	// ConfirmReservations turns the order's reservations into physical
	// deductions (stock only; available_stock was taken at reserve time) and
	// deletes the rows. Fails with ErrInsufficientPhysicalStock when any
	// variant's stock is below the reserved quantity.
	ConfirmReservations(ctx context.Context, orderID int64) ([]model.StockReservation, error)

	// RestockAvailable puts a quantity back into the sellable pool only,
	// compensating a reserve decrement that must be unwound.
	RestockAvailable(ctx context.Context, variantID int64, qty int) error

	// RestockItems adds quantities back to both counters, used when goods
	// physically re-enter the warehouse after a confirmed deduction.
	RestockItems(ctx context.Context, items []ItemQuantity) error

	ListReservationsByOrder(ctx context.Context, orderID int64) ([]model.StockReservation, error)

	// ListExpiredReservations finds reservations whose lease passed, for the
	// background reconciliation sweep.
	ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]model.StockReservation, error)
}
