package model

import "time"

// LoyaltyTier is a points threshold with earning and discount privileges.
type LoyaltyTier struct {
	ID              int64
	Name            string
	MinPoints       int64
	Multiplier      float64
	DiscountPercent float64
	MonthlyLimit    int
}

// LoyaltyAccount tracks a user's point balance and current tier. Tiers are
// only ever upgraded automatically, never downgraded.
type LoyaltyAccount struct {
	UserID    int64
	TierID    int64
	Points    int64
	UpdatedAt time.Time
}

// DiscountUsage counts tier-discount redemptions for one user in one
// calendar month. A missing row for the current period means zero usage;
// the ledger relies on that lazy reset instead of a rollover job.
type DiscountUsage struct {
	ID     int64
	UserID int64
	TierID int64
	Month  int
	Year   int
	Used   int
}
