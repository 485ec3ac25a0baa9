package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velostore/ordercore/internal/config"
	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/events"
)

// StockEngine is the reservation engine surface the orchestrator drives.
type StockEngine interface {
	Reserve(ctx context.Context, orderID int64, items []repository.ItemQuantity) error
	Release(ctx context.Context, orderID int64) error
	Confirm(ctx context.Context, orderID int64) error
	Return(ctx context.Context, orderID int64, items []repository.ItemQuantity) error
}

// OrderItemRequest is one requested cart line, priced server-side from the
// variant catalog.
type OrderItemRequest struct {
	VariantID int64
	Quantity  int
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	UserID        int64
	AddressID     int64
	PaymentMethod model.PaymentMethod
	Note          string
	ShippingFee   float64
	UsePoints     int64
	Items         []OrderItemRequest
}

// OrderUseCase is the single entry point for every order status mutation.
// User-driven transitions, payment reconciliation, and the sweepers all go
// through Transition, so authorization and side effects live in one place.
type OrderUseCase struct {
	orders    repository.OrderRepository
	inventory repository.InventoryRepository
	engine    StockEngine
	discounts *DiscountUseCase
	loyalty   *LoyaltyUseCase
	publisher events.Publisher

	paymentWindow time.Duration
	logger        *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(
	orders repository.OrderRepository,
	inventory repository.InventoryRepository,
	engine StockEngine,
	discounts *DiscountUseCase,
	loyalty *LoyaltyUseCase,
	publisher events.Publisher,
	cfg *config.Config,
	logger *slog.Logger,
) *OrderUseCase {
	window := cfg.PaymentWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &OrderUseCase{
		orders:        orders,
		inventory:     inventory,
		engine:        engine,
		discounts:     discounts,
		loyalty:       loyalty,
		publisher:     publisher,
		paymentWindow: window,
		logger:        logger,
	}
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder snapshots the requested lines at current catalog prices,
// applies the tier discount and redeemed points, persists the order in
// PENDING_PAYMENT with a payment deadline, and reserves stock. A
// reservation failure aborts the creation; nothing partial survives.
func (u *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", domainErrors.ErrValidation)
	}
	switch input.PaymentMethod {
	case model.PaymentMethodCOD, model.PaymentMethodGateway, model.PaymentMethodBankTransfer:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", domainErrors.ErrValidation, input.PaymentMethod)
	}

	ids := make([]int64, 0, len(input.Items))
	for _, it := range input.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: non-positive quantity for variant %d", domainErrors.ErrValidation, it.VariantID)
		}
		ids = append(ids, it.VariantID)
	}

	variants, err := u.inventory.GetVariants(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.ProductVariant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	var subtotal float64
	items := make([]model.OrderItem, 0, len(input.Items))
	quantities := make([]repository.ItemQuantity, 0, len(input.Items))
	for _, it := range input.Items {
		variant, ok := byID[it.VariantID]
		if !ok {
			return nil, fmt.Errorf("variant %d: %w", it.VariantID, domainErrors.ErrNotFound)
		}
		subtotal += variant.Price * float64(it.Quantity)
		items = append(items, model.OrderItem{
			VariantID:   variant.ID,
			ProductName: variant.ProductName,
			VariantName: variant.VariantName,
			SKU:         variant.SKU,
			UnitPrice:   variant.Price,
			Quantity:    it.Quantity,
		})
		quantities = append(quantities, repository.ItemQuantity{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	subtotal = round2(subtotal)

	// The discount slot is claimed up front so the cap cannot be overshot
	// by concurrent checkouts; any abort below has to give it back.
	var discountAmount float64
	discountTier, err := u.discounts.Redeem(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if discountTier != nil {
		discountAmount = round2(subtotal * discountTier.DiscountPercent / 100)
	}

	if input.UsePoints > 0 {
		if err := u.loyalty.Spend(ctx, input.UserID, input.UsePoints); err != nil {
			u.releaseDiscountSlot(ctx, input.UserID, discountTier)
			return nil, err
		}
	}

	total := round2(subtotal + input.ShippingFee - discountAmount - float64(input.UsePoints))
	if total < 0 {
		total = 0
	}

	lockedUntil := time.Now().Add(u.paymentWindow)
	order := &model.Order{
		Number:         newOrderNumber(),
		UserID:         input.UserID,
		AddressID:      input.AddressID,
		Subtotal:       subtotal,
		ShippingFee:    input.ShippingFee,
		DiscountAmount: discountAmount,
		PointsSpent:    input.UsePoints,
		Total:          total,
		Status:         status.PendingPayment,
		PaymentState:   model.PaymentStateUnpaid,
		PaymentMethod:  input.PaymentMethod,
		Note:           input.Note,
		LockedUntil:    &lockedUntil,
		Items:          items,
	}

	order, err = u.orders.Create(ctx, order)
	if err != nil {
		u.refundSpentPoints(ctx, input.UserID, input.UsePoints)
		u.releaseDiscountSlot(ctx, input.UserID, discountTier)
		return nil, err
	}

	if err := u.engine.Reserve(ctx, order.ID, quantities); err != nil {
		if delErr := u.orders.Delete(ctx, order.ID); delErr != nil {
			u.logger.Error("abort of unreservable order failed",
				slog.Int64("order_id", order.ID),
				slog.String("error", delErr.Error()))
		}
		u.refundSpentPoints(ctx, input.UserID, input.UsePoints)
		u.releaseDiscountSlot(ctx, input.UserID, discountTier)
		return nil, err
	}

	u.publisher.OrderCreated(ctx, events.OrderCreatedPayload{
		Envelope: events.Envelope{OrderID: order.ID, OrderNo: order.Number},
		UserID:   order.UserID,
		Total:    order.Total,
		Status:   order.Status,
	})

	// COD needs no online payment, so the order goes straight to the
	// confirmation queue and its stock is consumed now.
	if input.PaymentMethod == model.PaymentMethodCOD {
		return u.Transition(ctx, order.ID, status.PendingConfirmation, status.RoleSystem, "cod checkout")
	}

	return order, nil
}

func (u *OrderUseCase) refundSpentPoints(ctx context.Context, userID, points int64) {
	if points <= 0 {
		return
	}
	if err := u.loyalty.Refund(ctx, userID, points); err != nil {
		u.logger.Error("points refund failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}

func (u *OrderUseCase) releaseDiscountSlot(ctx context.Context, userID int64, tier *model.LoyaltyTier) {
	if tier == nil {
		return
	}
	if err := u.discounts.Release(ctx, userID, tier.ID); err != nil {
		u.logger.Error("discount slot release failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}

// Transition validates and applies one status change, running the side
// effects the target status implies. Every status write in the system goes
// through here.
func (u *OrderUseCase) Transition(ctx context.Context, orderID int64, target status.Status, role status.Role, note string) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := status.ValidateTransition(order.Status, target, role); err != nil {
		return nil, err
	}

	now := time.Now()
	upd := repository.OrderUpdate{Status: target}

	if order.Status == status.PendingPayment {
		upd.ClearLock = true
	}

	// Release and Confirm settle reservation rows and become no-ops once
	// the rows are gone, so they run before the status write and may block
	// it. Restocking and point refunds are cumulative and must fire exactly
	// once, so they wait until the write has claimed the transition.
	restock := false
	switch {
	case status.ReleasesStock(target):
		if order.Status == status.ReturnedToWarehouse {
			// Stock was physically deducted at confirmation and the goods
			// are back on the shelf, so both counters grow.
			restock = true
		} else if err := u.engine.Release(ctx, orderID); err != nil {
			return nil, err
		}
		if target == status.Cancelled {
			upd.CancelledAt = &now
		}
	case status.ConfirmsStock(target):
		if err := u.engine.Confirm(ctx, orderID); err != nil {
			return nil, err
		}
		upd.ConfirmedAt = &now
	case status.ReturnsStock(target):
		restock = true
		upd.RefundedAt = &now
	}

	switch target {
	case status.InTransit:
		upd.ShippedAt = &now
	case status.Delivered:
		upd.DeliveredAt = &now
	case status.Completed:
		upd.CompletedAt = &now
	}

	change := model.StatusChange{
		OrderID:    orderID,
		FromStatus: order.Status,
		ToStatus:   target,
		Actor:      role,
		Note:       note,
	}
	if err := u.orders.ApplyTransition(ctx, orderID, upd, change); err != nil {
		return nil, err
	}

	if restock {
		if err := u.engine.Return(ctx, orderID, itemQuantities(order)); err != nil {
			u.logger.Error("restock failed",
				slog.Int64("order_id", orderID),
				slog.String("error", err.Error()))
		}
	}
	if status.ReleasesStock(target) || status.ReturnsStock(target) {
		u.refundSpentPoints(ctx, order.UserID, order.PointsSpent)
	}

	if status.AwardsPoints(target) {
		if _, err := u.loyalty.AwardForOrder(ctx, order.UserID, order.Total); err != nil {
			u.logger.Error("points award failed",
				slog.Int64("order_id", orderID),
				slog.String("error", err.Error()))
		}
	}

	from := order.Status
	order.Status = target
	applyUpdate(order, upd, now)

	payload := events.StatusUpdatedPayload{
		Envelope:   events.Envelope{OrderID: order.ID, OrderNo: order.Number},
		FromStatus: from,
		ToStatus:   target,
	}
	u.publisher.OrderStatusUpdated(ctx, payload)
	if target == status.Cancelled {
		u.publisher.OrderCancelled(ctx, payload)
	}

	return order, nil
}

func itemQuantities(order *model.Order) []repository.ItemQuantity {
	items := make([]repository.ItemQuantity, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, repository.ItemQuantity{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return items
}

func applyUpdate(order *model.Order, upd repository.OrderUpdate, now time.Time) {
	if upd.ClearLock {
		order.LockedUntil = nil
	}
	if upd.PaymentState != nil {
		order.PaymentState = *upd.PaymentState
	}
	if upd.ConfirmedAt != nil {
		order.ConfirmedAt = upd.ConfirmedAt
	}
	if upd.ShippedAt != nil {
		order.ShippedAt = upd.ShippedAt
	}
	if upd.DeliveredAt != nil {
		order.DeliveredAt = upd.DeliveredAt
	}
	if upd.CancelledAt != nil {
		order.CancelledAt = upd.CancelledAt
	}
	if upd.CompletedAt != nil {
		order.CompletedAt = upd.CompletedAt
	}
	if upd.RefundedAt != nil {
		order.RefundedAt = upd.RefundedAt
	}
	order.UpdatedAt = now
}

// SetPaymentState records a payment outcome on the order without moving its
// fulfillment status.
func (u *OrderUseCase) SetPaymentState(ctx context.Context, orderID int64, state model.PaymentState) error {
	return u.orders.SetPaymentState(ctx, orderID, state)
}

// GetByID loads one order with its item snapshot.
func (u *OrderUseCase) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	return u.orders.GetByID(ctx, orderID)
}

// GetByNumber loads one order by its public number.
func (u *OrderUseCase) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return u.orders.GetByNumber(ctx, number)
}

// ListByUser returns the user's orders, newest first.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID)
}

// History returns the append-only transition audit of an order.
func (u *OrderUseCase) History(ctx context.Context, orderID int64) ([]model.StatusChange, error) {
	return u.orders.History(ctx, orderID)
}
