package repository

import (
	"context"

	"github.com/velostore/ordercore/internal/domain/model"
)

// LoyaltyRepository manages point balances, tiers, and the monthly discount
// usage ledger.
type LoyaltyRepository interface {
	GetAccount(ctx context.Context, userID int64) (*model.LoyaltyAccount, error)
	GetTier(ctx context.Context, tierID int64) (*model.LoyaltyTier, error)
	ListTiers(ctx context.Context) ([]model.LoyaltyTier, error)

	// AddPoints adjusts the balance by delta (negative to refund tentatively
	// spent points) and returns the new balance.
	AddPoints(ctx context.Context, userID int64, delta int64) (int64, error)
	SetTier(ctx context.Context, userID, tierID int64) error

	// GetUsage returns the usage row for the period, or ErrNotFound when the
	// user has not redeemed this period yet. Absence means zero usage.
	GetUsage(ctx context.Context, userID, tierID int64, month, year int) (*model.DiscountUsage, error)

	// IncrementUsage upserts the period row, creating it at 1 when absent,
	// but only while the counter is below limit. It reports whether the
	// slot was claimed; the guard makes concurrent claims at the cap lose
	// instead of overshooting it.
	IncrementUsage(ctx context.Context, userID, tierID int64, month, year, limit int) (bool, error)

	// DecrementUsage gives a claimed slot back when the order it was
	// claimed for never materialized. A missing or zero row is a no-op.
	DecrementUsage(ctx context.Context, userID, tierID int64, month, year int) error
}
