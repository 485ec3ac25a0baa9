package test

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/payment/gateway"
	"github.com/velostore/ordercore/internal/usecase"
)

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	CreateFn  func(context.Context, usecase.CreateOrderInput) (*model.Order, error)
	OrderFn   func(context.Context, int64) (*model.Order, error)
	OrdersFn  func(context.Context, int64) ([]model.Order, error)
	HistoryFn func(context.Context, int64) ([]model.StatusChange, error)
	ChangeFn  func(context.Context, int64, status.Status, status.Role, string) (*model.Order, error)
}

// CreateOrder delegates to the provided function or returns a default order.
func (s OrderFacadeStub) CreateOrder(ctx context.Context, input usecase.CreateOrderInput) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, input)
	}
	return &model.Order{ID: 1, Number: "ORD-1", UserID: input.UserID, Status: status.PendingPayment}, nil
}

// Order returns the configured order or a default one.
func (s OrderFacadeStub) Order(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, orderID)
	}
	return &model.Order{ID: orderID, Number: "ORD-1", Status: status.PendingPayment}, nil
}

// Orders returns predefined orders for the given user.
func (s OrderFacadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return []model.Order{{ID: 1, Number: "ORD-1", UserID: userID}}, nil
}

// OrderHistory returns the configured audit trail.
func (s OrderFacadeStub) OrderHistory(ctx context.Context, orderID int64) ([]model.StatusChange, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, orderID)
	}
	return []model.StatusChange{{OrderID: orderID, ToStatus: status.PendingPayment, CreatedAt: time.Unix(0, 0)}}, nil
}

// ChangeStatus delegates to the provided function or echoes the target.
func (s OrderFacadeStub) ChangeStatus(ctx context.Context, orderID int64, target status.Status, role status.Role, note string) (*model.Order, error) {
	if s.ChangeFn != nil {
		return s.ChangeFn(ctx, orderID, target, role, note)
	}
	return &model.Order{ID: orderID, Number: "ORD-1", Status: target}, nil
}

// PaymentFacadeStub simulates payment reconciliation.
type PaymentFacadeStub struct {
	ReturnFn  func(context.Context, url.Values) *usecase.ReconcileResult
	IPNFn     func(context.Context, url.Values) *usecase.ReconcileResult
	CollectFn func(context.Context, int64, status.Role) (*model.Payment, error)
	PaymentFn func(context.Context, int64) (*model.Payment, error)
}

// PaymentReturn delegates or answers success.
func (s PaymentFacadeStub) PaymentReturn(ctx context.Context, params url.Values) *usecase.ReconcileResult {
	if s.ReturnFn != nil {
		return s.ReturnFn(ctx, params)
	}
	return &usecase.ReconcileResult{Code: gateway.RspSuccess}
}

// PaymentIPN delegates or answers success.
func (s PaymentFacadeStub) PaymentIPN(ctx context.Context, params url.Values) *usecase.ReconcileResult {
	if s.IPNFn != nil {
		return s.IPNFn(ctx, params)
	}
	return &usecase.ReconcileResult{Code: gateway.RspSuccess}
}

// CollectCOD delegates or returns a collected payment.
func (s PaymentFacadeStub) CollectCOD(ctx context.Context, orderID int64, role status.Role) (*model.Payment, error) {
	if s.CollectFn != nil {
		return s.CollectFn(ctx, orderID, role)
	}
	return &model.Payment{OrderID: orderID, Status: model.PaymentStatusCODCollected}, nil
}

// Payment delegates or returns a pending payment.
func (s PaymentFacadeStub) Payment(ctx context.Context, orderID int64) (*model.Payment, error) {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, orderID)
	}
	return &model.Payment{OrderID: orderID, Status: model.PaymentStatusPending}, nil
}

// DiscountFacadeStub answers eligibility checks.
type DiscountFacadeStub struct {
	EligibilityFn func(context.Context, int64) (*usecase.Eligibility, error)
}

// DiscountEligibility delegates or reports an ineligible user.
func (s DiscountFacadeStub) DiscountEligibility(ctx context.Context, userID int64) (*usecase.Eligibility, error) {
	if s.EligibilityFn != nil {
		return s.EligibilityFn(ctx, userID)
	}
	return &usecase.Eligibility{}, nil
}

// PipelineFacadeStub aggregates the facade stubs for router level tests.
type PipelineFacadeStub struct {
	OrderFacadeStub
	PaymentFacadeStub
	DiscountFacadeStub
}

// TransitionCall records one ChangeStatus invocation.
type TransitionCall struct {
	OrderID int64
	Target  status.Status
	Role    status.Role
	Note    string
}

// TransitionRecorder captures ChangeStatus calls across goroutines.
type TransitionRecorder struct {
	mu    sync.Mutex
	Calls []TransitionCall
}

// Record stores one call.
func (r *TransitionRecorder) Record(call TransitionCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, call)
}

// Recorded returns a snapshot of the captured calls.
func (r *TransitionRecorder) Recorded() []TransitionCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TransitionCall, len(r.Calls))
	copy(out, r.Calls)
	return out
}
