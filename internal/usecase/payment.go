package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/payment/gateway"
)

// amountTolerance absorbs float rounding between the gateway's minor-unit
// integer and the stored order total.
const amountTolerance = 0.01

// PaymentUseCase reconciles gateway callbacks and COD collection against
// the order pipeline. Both gateway channels run the same verification and
// are safe to invoke any number of times with the same payload.
type PaymentUseCase struct {
	codec        *gateway.Codec
	orders       repository.OrderRepository
	payments     repository.PaymentRepository
	orchestrator *OrderUseCase
	logger       *slog.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(
	codec *gateway.Codec,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	orchestrator *OrderUseCase,
	logger *slog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		codec:        codec,
		orders:       orders,
		payments:     payments,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ReconcileResult is the structured outcome of one callback delivery.
type ReconcileResult struct {
	Code  gateway.ResponseCode
	Order *model.Order
}

// HandleReturn processes the synchronous browser redirect from the gateway.
func (u *PaymentUseCase) HandleReturn(ctx context.Context, params url.Values) *ReconcileResult {
	return u.reconcile(ctx, params)
}

// HandleIPN processes the asynchronous server-to-server notification. The
// gateway retries every code except success and already-processed.
func (u *PaymentUseCase) HandleIPN(ctx context.Context, params url.Values) *ReconcileResult {
	return u.reconcile(ctx, params)
}

func (u *PaymentUseCase) reconcile(ctx context.Context, params url.Values) *ReconcileResult {
	cb, err := u.codec.ParseCallback(params)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSignatureInvalid) {
			return &ReconcileResult{Code: gateway.RspSignatureInvalid}
		}
		u.logger.Warn("malformed gateway callback", slog.String("error", err.Error()))
		return &ReconcileResult{Code: gateway.RspInternalError}
	}

	order, err := u.orders.GetByNumber(ctx, cb.TxnRef)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return &ReconcileResult{Code: gateway.RspOrderNotFound}
		}
		u.logger.Error("order lookup failed", slog.String("txn_ref", cb.TxnRef), slog.String("error", err.Error()))
		return &ReconcileResult{Code: gateway.RspInternalError}
	}

	if math.Abs(cb.AmountValue()-order.Total) > amountTolerance {
		u.logger.Warn("callback amount mismatch",
			slog.String("order_no", order.Number),
			slog.Float64("reported", cb.AmountValue()),
			slog.Float64("expected", order.Total))
		return &ReconcileResult{Code: gateway.RspAmountMismatch, Order: order}
	}

	payment, err := u.payments.GetOrCreate(ctx, order.ID, order.Total)
	if err != nil {
		u.logger.Error("payment lookup failed", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
		return &ReconcileResult{Code: gateway.RspInternalError, Order: order}
	}
	if payment.Status.Terminal() {
		return &ReconcileResult{Code: gateway.RspAlreadyProcessed, Order: order}
	}

	if !cb.Succeeded() {
		if _, err := u.payments.MarkFailed(ctx, payment.ID, cb.Raw); err != nil {
			u.logger.Error("payment failure mark failed", slog.Int64("payment_id", payment.ID), slog.String("error", err.Error()))
			return &ReconcileResult{Code: gateway.RspInternalError, Order: order}
		}
		// The order itself is left for the timeout sweep so the buyer can
		// retry within the payment window.
		if err := u.orchestrator.SetPaymentState(ctx, order.ID, model.PaymentStateFailed); err != nil {
			u.logger.Error("payment state update failed", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
			return &ReconcileResult{Code: gateway.RspInternalError, Order: order}
		}
		order.PaymentState = model.PaymentStateFailed
		return &ReconcileResult{Code: gateway.RspSuccess, Order: order}
	}

	applied, err := u.payments.MarkPaid(ctx, payment.ID, cb.TransactionNo, cb.BankCode, cb.Raw)
	if err != nil {
		u.logger.Error("payment mark failed", slog.Int64("payment_id", payment.ID), slog.String("error", err.Error()))
		return &ReconcileResult{Code: gateway.RspInternalError, Order: order}
	}
	if !applied {
		// A concurrent delivery won the guarded update.
		return &ReconcileResult{Code: gateway.RspAlreadyProcessed, Order: order}
	}

	paid := model.PaymentStatePaid
	updated, err := u.advancePaid(ctx, order, &paid)
	if err != nil {
		u.logger.Error("paid order advance failed", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
		return &ReconcileResult{Code: gateway.RspInternalError, Order: order}
	}
	return &ReconcileResult{Code: gateway.RspSuccess, Order: updated}
}

func (u *PaymentUseCase) advancePaid(ctx context.Context, order *model.Order, state *model.PaymentState) (*model.Order, error) {
	if err := u.orchestrator.SetPaymentState(ctx, order.ID, *state); err != nil {
		return nil, err
	}
	updated, err := u.orchestrator.Transition(ctx, order.ID, status.PendingConfirmation, status.RoleSystem, "gateway payment confirmed")
	if err != nil {
		return nil, err
	}
	updated.PaymentState = *state
	return updated, nil
}

// CollectCOD records cash collection on delivery. Staff only; it touches
// the payment axis, not the fulfillment status.
func (u *PaymentUseCase) CollectCOD(ctx context.Context, orderID int64, role status.Role) (*model.Payment, error) {
	if role != status.RoleStaff && role != status.RoleSystem {
		return nil, domainErrors.ErrForbidden
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != model.PaymentMethodCOD {
		return nil, fmt.Errorf("%w: order %s is not cash on delivery", domainErrors.ErrValidation, order.Number)
	}

	payment, err := u.payments.GetOrCreate(ctx, order.ID, order.Total)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return nil, domainErrors.ErrAlreadyProcessed
	}

	applied, err := u.payments.MarkCODCollected(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domainErrors.ErrAlreadyProcessed
	}

	if err := u.orchestrator.SetPaymentState(ctx, orderID, model.PaymentStateCODCollected); err != nil {
		return nil, err
	}

	payment.Status = model.PaymentStatusCODCollected
	return payment, nil
}

// GetByOrder exposes the payment record for an order.
func (u *PaymentUseCase) GetByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	return u.payments.GetByOrder(ctx, orderID)
}
