package handlers

import (
	"context"
	"net/url"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/usecase"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, input usecase.CreateOrderInput) (*model.Order, error)
	Order(ctx context.Context, orderID int64) (*model.Order, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
	OrderHistory(ctx context.Context, orderID int64) ([]model.StatusChange, error)
	ChangeStatus(ctx context.Context, orderID int64, target status.Status, role status.Role, note string) (*model.Order, error)
}

// PaymentFacade provides the gateway channels and COD collection.
type PaymentFacade interface {
	PaymentReturn(ctx context.Context, params url.Values) *usecase.ReconcileResult
	PaymentIPN(ctx context.Context, params url.Values) *usecase.ReconcileResult
	CollectCOD(ctx context.Context, orderID int64, role status.Role) (*model.Payment, error)
	Payment(ctx context.Context, orderID int64) (*model.Payment, error)
}

// DiscountFacade exposes the monthly discount allowance check.
type DiscountFacade interface {
	DiscountEligibility(ctx context.Context, userID int64) (*usecase.Eligibility, error)
}

// PipelineFacade aggregates the full set of operations used across handlers.
type PipelineFacade interface {
	OrderFacade
	PaymentFacade
	DiscountFacade
}
