package usecase

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/payment/gateway"
)

const testGatewaySecret = "gateway-secret"

type paymentFixture struct {
	*orchestratorFixture
	pay   *PaymentUseCase
	codec *gateway.Codec
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	base := newOrchestratorFixture(catalog())
	codec := gateway.NewCodec(testGatewaySecret)
	return &paymentFixture{
		orchestratorFixture: base,
		pay:                 NewPaymentUseCase(codec, base.orders, base.payments, base.uc, testLogger()),
		codec:               codec,
	}
}

func (f *paymentFixture) placeGatewayOrder(t *testing.T) *model.Order {
	t.Helper()
	order, err := f.uc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        7,
		PaymentMethod: model.PaymentMethodGateway,
		Items:         []OrderItemRequest{{VariantID: 11, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

// signedCallback builds the parameter set the gateway would send, with the
// amount in minor units and a valid signature.
func (f *paymentFixture) signedCallback(orderNo string, amount int64, respCode string) url.Values {
	params := url.Values{}
	params.Set(gateway.ParamTxnRef, orderNo)
	params.Set(gateway.ParamAmount, strconv.FormatInt(amount, 10))
	params.Set(gateway.ParamResponseCode, respCode)
	params.Set(gateway.ParamBankCode, "NCB")
	params.Set(gateway.ParamTransactionNo, "14576401")
	params.Set(gateway.ParamSecureHash, f.codec.Sign(params))
	return params
}

func minorUnits(total float64) int64 {
	return int64(total * 100)
}

func TestHandleIPNSuccess(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	result := f.pay.HandleIPN(context.Background(), f.signedCallback(order.Number, minorUnits(order.Total), gateway.SuccessCode))
	if result.Code != gateway.RspSuccess {
		t.Fatalf("expected code 00, got %s", result.Code)
	}

	if result.Order.Status != status.PendingConfirmation {
		t.Fatalf("expected PENDING_CONFIRMATION, got %s", result.Order.Status)
	}
	if result.Order.PaymentState != model.PaymentStatePaid {
		t.Fatalf("expected PAID, got %s", result.Order.PaymentState)
	}

	payment, err := f.pay.GetByOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != model.PaymentStatusPaid || payment.TransactionID != "14576401" || payment.BankCode != "NCB" {
		t.Fatalf("unexpected payment record: %+v", payment)
	}
	if payment.PaidAt == nil {
		t.Fatal("paid timestamp missing")
	}

	if len(f.engine.confirmed) != 1 || f.engine.confirmed[0] != order.ID {
		t.Fatalf("stock should be consume-confirmed: %v", f.engine.confirmed)
	}
}

func TestHandleIPNDuplicateDelivery(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)
	params := f.signedCallback(order.Number, minorUnits(order.Total), gateway.SuccessCode)

	if result := f.pay.HandleIPN(context.Background(), params); result.Code != gateway.RspSuccess {
		t.Fatalf("first delivery: expected 00, got %s", result.Code)
	}
	if result := f.pay.HandleIPN(context.Background(), params); result.Code != gateway.RspAlreadyProcessed {
		t.Fatalf("second delivery: expected 02, got %s", result.Code)
	}

	if len(f.engine.confirmed) != 1 {
		t.Fatalf("stock must be confirmed exactly once: %v", f.engine.confirmed)
	}
}

func TestHandleIPNSignatureInvalid(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	params := f.signedCallback(order.Number, minorUnits(order.Total), gateway.SuccessCode)
	params.Set(gateway.ParamAmount, strconv.FormatInt(minorUnits(order.Total)+100, 10))

	result := f.pay.HandleIPN(context.Background(), params)
	if result.Code != gateway.RspSignatureInvalid {
		t.Fatalf("expected 97, got %s", result.Code)
	}

	stored, _ := f.uc.GetByID(context.Background(), order.ID)
	if stored.Status != status.PendingPayment || stored.PaymentState != model.PaymentStateUnpaid {
		t.Fatalf("tampered callback must not touch the order: %+v", stored)
	}
}

func TestHandleIPNOrderNotFound(t *testing.T) {
	f := newPaymentFixture(t)

	result := f.pay.HandleIPN(context.Background(), f.signedCallback("ORD-20260829-MISSING", 10000, gateway.SuccessCode))
	if result.Code != gateway.RspOrderNotFound {
		t.Fatalf("expected 01, got %s", result.Code)
	}
}

func TestHandleIPNAmountMismatch(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	result := f.pay.HandleIPN(context.Background(), f.signedCallback(order.Number, minorUnits(order.Total)-500, gateway.SuccessCode))
	if result.Code != gateway.RspAmountMismatch {
		t.Fatalf("expected 04, got %s", result.Code)
	}

	if _, err := f.pay.GetByOrder(context.Background(), order.ID); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatal("no payment record should be created on a mismatch")
	}
}

func TestHandleIPNFailureLeavesOrderForSweep(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	result := f.pay.HandleIPN(context.Background(), f.signedCallback(order.Number, minorUnits(order.Total), "24"))
	if result.Code != gateway.RspSuccess {
		t.Fatalf("a processed failure notification still answers 00, got %s", result.Code)
	}

	payment, err := f.pay.GetByOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != model.PaymentStatusFailed || payment.FailedAt == nil {
		t.Fatalf("unexpected payment record: %+v", payment)
	}

	stored, _ := f.uc.GetByID(context.Background(), order.ID)
	if stored.Status != status.PendingPayment {
		t.Fatalf("order must stay in PENDING_PAYMENT for the retry window, got %s", stored.Status)
	}
	if stored.PaymentState != model.PaymentStateFailed {
		t.Fatalf("expected FAILED payment state, got %s", stored.PaymentState)
	}
	if len(f.engine.released) != 0 {
		t.Fatal("stock must stay reserved until the timeout sweep")
	}
}

func TestHandleIPNRetryAfterFailure(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	if result := f.pay.HandleIPN(context.Background(), f.signedCallback(order.Number, minorUnits(order.Total), "24")); result.Code != gateway.RspSuccess {
		t.Fatalf("failure delivery: expected 00, got %s", result.Code)
	}
	// A failed attempt is not terminal; the buyer may pay again within the
	// window and the retry settles the same payment record.
	result := f.pay.HandleIPN(context.Background(), f.signedCallback(order.Number, minorUnits(order.Total), gateway.SuccessCode))
	if result.Code != gateway.RspSuccess {
		t.Fatalf("retry delivery: expected 00, got %s", result.Code)
	}
	if result.Order.Status != status.PendingConfirmation || result.Order.PaymentState != model.PaymentStatePaid {
		t.Fatalf("unexpected order after retry: %+v", result.Order)
	}

	payment, err := f.pay.GetByOrder(context.Background(), order.ID)
	if err != nil || payment.Status != model.PaymentStatusPaid {
		t.Fatalf("unexpected payment after retry: %+v err=%v", payment, err)
	}
}

func TestHandleReturnMatchesIPN(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	result := f.pay.HandleReturn(context.Background(), f.signedCallback(order.Number, minorUnits(order.Total), gateway.SuccessCode))
	if result.Code != gateway.RspSuccess {
		t.Fatalf("expected 00, got %s", result.Code)
	}
	if result.Order.Status != status.PendingConfirmation {
		t.Fatalf("expected PENDING_CONFIRMATION, got %s", result.Order.Status)
	}
}

func TestCollectCOD(t *testing.T) {
	f := newPaymentFixture(t)
	order, err := f.uc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:        7,
		PaymentMethod: model.PaymentMethodCOD,
		Items:         []OrderItemRequest{{VariantID: 11, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := f.pay.CollectCOD(context.Background(), order.ID, status.RoleCustomer); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("customer collection must be forbidden, got %v", err)
	}

	payment, err := f.pay.CollectCOD(context.Background(), order.ID, status.RoleStaff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != model.PaymentStatusCODCollected {
		t.Fatalf("expected COD_COLLECTED, got %s", payment.Status)
	}

	stored, _ := f.uc.GetByID(context.Background(), order.ID)
	if stored.PaymentState != model.PaymentStateCODCollected {
		t.Fatalf("expected COD_COLLECTED payment state, got %s", stored.PaymentState)
	}
	if stored.Status != status.PendingConfirmation {
		t.Fatalf("collection must not move the fulfillment status, got %s", stored.Status)
	}

	if _, err := f.pay.CollectCOD(context.Background(), order.ID, status.RoleStaff); !errors.Is(err, domainErrors.ErrAlreadyProcessed) {
		t.Fatalf("repeat collection: expected already processed, got %v", err)
	}
}

func TestCollectCODRejectsGatewayOrder(t *testing.T) {
	f := newPaymentFixture(t)
	order := f.placeGatewayOrder(t)

	if _, err := f.pay.CollectCOD(context.Background(), order.ID, status.RoleStaff); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCollectCODOrderNotFound(t *testing.T) {
	f := newPaymentFixture(t)
	if _, err := f.pay.CollectCOD(context.Background(), 404, status.RoleStaff); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
