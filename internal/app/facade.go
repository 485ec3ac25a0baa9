package app

import (
	"context"
	"net/url"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/usecase"
)

// PipelineFacade is the single application surface the HTTP layer talks to.
type PipelineFacade struct {
	orders    *usecase.OrderUseCase
	payments  *usecase.PaymentUseCase
	discounts *usecase.DiscountUseCase
}

// NewPipelineFacade constructs PipelineFacade.
func NewPipelineFacade(orders *usecase.OrderUseCase, payments *usecase.PaymentUseCase, discounts *usecase.DiscountUseCase) *PipelineFacade {
	return &PipelineFacade{orders: orders, payments: payments, discounts: discounts}
}

func (f *PipelineFacade) CreateOrder(ctx context.Context, input usecase.CreateOrderInput) (*model.Order, error) {
	return f.orders.CreateOrder(ctx, input)
}

func (f *PipelineFacade) Order(ctx context.Context, orderID int64) (*model.Order, error) {
	return f.orders.GetByID(ctx, orderID)
}

func (f *PipelineFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *PipelineFacade) OrderHistory(ctx context.Context, orderID int64) ([]model.StatusChange, error) {
	return f.orders.History(ctx, orderID)
}

func (f *PipelineFacade) ChangeStatus(ctx context.Context, orderID int64, target status.Status, role status.Role, note string) (*model.Order, error) {
	return f.orders.Transition(ctx, orderID, target, role, note)
}

func (f *PipelineFacade) PaymentReturn(ctx context.Context, params url.Values) *usecase.ReconcileResult {
	return f.payments.HandleReturn(ctx, params)
}

func (f *PipelineFacade) PaymentIPN(ctx context.Context, params url.Values) *usecase.ReconcileResult {
	return f.payments.HandleIPN(ctx, params)
}

func (f *PipelineFacade) CollectCOD(ctx context.Context, orderID int64, role status.Role) (*model.Payment, error) {
	return f.payments.CollectCOD(ctx, orderID, role)
}

func (f *PipelineFacade) Payment(ctx context.Context, orderID int64) (*model.Payment, error) {
	return f.payments.GetByOrder(ctx, orderID)
}

func (f *PipelineFacade) DiscountEligibility(ctx context.Context, userID int64) (*usecase.Eligibility, error) {
	return f.discounts.CheckEligibility(ctx, userID)
}
