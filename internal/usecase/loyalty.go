package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/velostore/ordercore/internal/config"
	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/repository"
)

// LoyaltyUseCase manages point balances and tier evaluation.
type LoyaltyUseCase struct {
	loyalty       repository.LoyaltyRepository
	pointsPerUnit float64
	logger        *slog.Logger
}

// NewLoyaltyUseCase constructs LoyaltyUseCase.
func NewLoyaltyUseCase(loyalty repository.LoyaltyRepository, cfg *config.Config, logger *slog.Logger) *LoyaltyUseCase {
	pointsPerUnit := cfg.PointsPerUnit
	if pointsPerUnit <= 0 {
		pointsPerUnit = 1000
	}
	return &LoyaltyUseCase{loyalty: loyalty, pointsPerUnit: pointsPerUnit, logger: logger}
}

// AwardForOrder credits points for a completed order and re-evaluates the
// tier against the new balance. Earned points are
// floor(floor(total / pointsPerUnit) * multiplier) with the multiplier
// taken from the user's current tier.
func (u *LoyaltyUseCase) AwardForOrder(ctx context.Context, userID int64, total float64) (int64, error) {
	multiplier := 1.0
	account, err := u.loyalty.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return 0, err
	}
	if account != nil {
		tier, err := u.loyalty.GetTier(ctx, account.TierID)
		if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return 0, err
		}
		if tier != nil && tier.Multiplier > 0 {
			multiplier = tier.Multiplier
		}
	}

	base := math.Floor(total / u.pointsPerUnit)
	earned := int64(math.Floor(base * multiplier))
	if earned <= 0 {
		return 0, nil
	}

	balance, err := u.loyalty.AddPoints(ctx, userID, earned)
	if err != nil {
		return 0, err
	}

	if err := u.reevaluateTier(ctx, userID, balance); err != nil {
		// The points are already credited; a tier lag corrects itself on the
		// next award.
		u.logger.Error("tier re-evaluation failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}

	return earned, nil
}

// reevaluateTier upgrades the user to the highest tier whose threshold the
// balance meets. Tiers are never downgraded automatically.
func (u *LoyaltyUseCase) reevaluateTier(ctx context.Context, userID, balance int64) error {
	tiers, err := u.loyalty.ListTiers(ctx)
	if err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}

	var currentMin int64
	account, err := u.loyalty.GetAccount(ctx, userID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return err
	}
	if account != nil {
		if tier, err := u.loyalty.GetTier(ctx, account.TierID); err == nil {
			currentMin = tier.MinPoints
		}
	}

	var candidateID int64
	candidateMin := int64(-1)
	for _, t := range tiers {
		if t.MinPoints <= balance && t.MinPoints > candidateMin {
			candidateID = t.ID
			candidateMin = t.MinPoints
		}
	}
	if candidateMin <= currentMin || candidateID == 0 {
		return nil
	}
	if account != nil && account.TierID == candidateID {
		return nil
	}
	return u.loyalty.SetTier(ctx, userID, candidateID)
}

// Spend tentatively redeems points at checkout, failing when the balance
// does not cover the request.
func (u *LoyaltyUseCase) Spend(ctx context.Context, userID, points int64) error {
	if points <= 0 {
		return domainErrors.ErrValidation
	}
	account, err := u.loyalty.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return domainErrors.ErrValidation
		}
		return err
	}
	if account.Points < points {
		return domainErrors.ErrValidation
	}
	_, err = u.loyalty.AddPoints(ctx, userID, -points)
	return err
}

// Refund returns tentatively spent points after the order they were
// redeemed against failed or was cancelled.
func (u *LoyaltyUseCase) Refund(ctx context.Context, userID, points int64) error {
	if points <= 0 {
		return nil
	}
	_, err := u.loyalty.AddPoints(ctx, userID, points)
	return err
}
