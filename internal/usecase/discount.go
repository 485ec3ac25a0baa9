package usecase

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
)

// Eligibility is the outcome of a discount check for the current month.
type Eligibility struct {
	Eligible  bool
	Remaining int
	Tier      *model.LoyaltyTier
}

// DiscountUseCase enforces the per-tier monthly redemption cap. The ledger
// is keyed (user, tier, month, year); a missing row for the current period
// means zero usage, so a month rollover needs no reset job.
type DiscountUseCase struct {
	loyalty repository.LoyaltyRepository
	now     func() time.Time
}

// NewDiscountUseCase constructs DiscountUseCase.
func NewDiscountUseCase(loyalty repository.LoyaltyRepository) *DiscountUseCase {
	return &DiscountUseCase{loyalty: loyalty, now: time.Now}
}

// CheckEligibility reports whether the user may redeem their tier discount
// this month and how many redemptions remain.
func (u *DiscountUseCase) CheckEligibility(ctx context.Context, userID int64) (*Eligibility, error) {
	account, err := u.loyalty.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return &Eligibility{}, nil
		}
		return nil, err
	}

	tier, err := u.loyalty.GetTier(ctx, account.TierID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return &Eligibility{}, nil
		}
		return nil, err
	}
	if tier.DiscountPercent <= 0 || tier.MonthlyLimit <= 0 {
		return &Eligibility{Tier: tier}, nil
	}

	now := u.now()
	used := 0
	usage, err := u.loyalty.GetUsage(ctx, userID, tier.ID, int(now.Month()), now.Year())
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}
	if usage != nil {
		used = usage.Used
	}

	remaining := tier.MonthlyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return &Eligibility{
		Eligible:  remaining > 0,
		Remaining: remaining,
		Tier:      tier,
	}, nil
}

// Redeem claims one redemption slot for the current period and returns the
// tier the discount comes from. A nil tier means no discount applies, either
// because the user has no discounting tier or because the monthly cap is
// already spent. The claim is a guarded counter increment, so concurrent
// checkouts racing for the last slot cannot both win it.
func (u *DiscountUseCase) Redeem(ctx context.Context, userID int64) (*model.LoyaltyTier, error) {
	account, err := u.loyalty.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	tier, err := u.loyalty.GetTier(ctx, account.TierID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if tier.DiscountPercent <= 0 || tier.MonthlyLimit <= 0 {
		return nil, nil
	}

	now := u.now()
	claimed, err := u.loyalty.IncrementUsage(ctx, userID, tier.ID, int(now.Month()), now.Year(), tier.MonthlyLimit)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}
	return tier, nil
}

// Release gives a slot claimed by Redeem back, for checkouts that claimed a
// discount and then failed before the order existed.
func (u *DiscountUseCase) Release(ctx context.Context, userID int64, tierID int64) error {
	now := u.now()
	return u.loyalty.DecrementUsage(ctx, userID, tierID, int(now.Month()), now.Year())
}
