package test

import (
	"context"
	"time"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/domain/status"
)

// OrderRepositoryStub implements repository.OrderRepository over in-memory
// fixtures. Sweep queries return the configured slices as-is.
type OrderRepositoryStub struct {
	Order       *model.Order
	Orders      []model.Order
	HistoryRows []model.StatusChange

	Expired   []model.Order
	Delivered []model.Order
	Refunded  []model.Order

	Transitions []repository.OrderUpdate
	Deleted     []int64
}

func (s *OrderRepositoryStub) Create(_ context.Context, order *model.Order) (*model.Order, error) {
	created := *order
	created.ID = 1
	s.Order = &created
	s.HistoryRows = append(s.HistoryRows, model.StatusChange{
		OrderID:  created.ID,
		ToStatus: created.Status,
		Actor:    status.RoleSystem,
		Note:     "order created",
	})
	return &created, nil
}

func (s *OrderRepositoryStub) GetByID(_ context.Context, id int64) (*model.Order, error) {
	if s.Order == nil || s.Order.ID != id {
		return nil, domainErrors.ErrNotFound
	}
	copied := *s.Order
	return &copied, nil
}

func (s *OrderRepositoryStub) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	if s.Order == nil || s.Order.Number != number {
		return nil, domainErrors.ErrNotFound
	}
	copied := *s.Order
	return &copied, nil
}

func (s *OrderRepositoryStub) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	var out []model.Order
	for _, o := range s.Orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *OrderRepositoryStub) ApplyTransition(_ context.Context, orderID int64, upd repository.OrderUpdate, change model.StatusChange) error {
	if s.Order == nil || s.Order.ID != orderID {
		return domainErrors.ErrNotFound
	}
	if s.Order.Status != change.FromStatus {
		return domainErrors.ErrConflict
	}
	s.Transitions = append(s.Transitions, upd)
	s.Order.Status = upd.Status
	if upd.PaymentState != nil {
		s.Order.PaymentState = *upd.PaymentState
	}
	if upd.ClearLock {
		s.Order.LockedUntil = nil
	}
	s.HistoryRows = append(s.HistoryRows, change)
	return nil
}

func (s *OrderRepositoryStub) History(_ context.Context, orderID int64) ([]model.StatusChange, error) {
	var out []model.StatusChange
	for _, c := range s.HistoryRows {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *OrderRepositoryStub) SetPaymentState(_ context.Context, orderID int64, state model.PaymentState) error {
	if s.Order == nil || s.Order.ID != orderID {
		return domainErrors.ErrNotFound
	}
	s.Order.PaymentState = state
	return nil
}

func (s *OrderRepositoryStub) Delete(_ context.Context, orderID int64) error {
	s.Deleted = append(s.Deleted, orderID)
	if s.Order != nil && s.Order.ID == orderID {
		s.Order = nil
	}
	return nil
}

func (s *OrderRepositoryStub) ListExpiredPendingPayment(context.Context, time.Time, int) ([]model.Order, error) {
	return s.Expired, nil
}

func (s *OrderRepositoryStub) ListDeliveredBefore(context.Context, time.Time, int) ([]model.Order, error) {
	return s.Delivered, nil
}

func (s *OrderRepositoryStub) ListRefundedBefore(context.Context, time.Time, int) ([]model.Order, error) {
	return s.Refunded, nil
}

// PaymentRepositoryStub keeps a single payment record per test.
type PaymentRepositoryStub struct {
	Payment *model.Payment
	nextID  int64
}

func (s *PaymentRepositoryStub) GetOrCreate(_ context.Context, orderID int64, amount float64) (*model.Payment, error) {
	if s.Payment != nil && s.Payment.OrderID == orderID {
		copied := *s.Payment
		return &copied, nil
	}
	s.nextID++
	s.Payment = &model.Payment{ID: s.nextID, OrderID: orderID, Amount: amount, Status: model.PaymentStatusPending}
	copied := *s.Payment
	return &copied, nil
}

func (s *PaymentRepositoryStub) GetByOrder(_ context.Context, orderID int64) (*model.Payment, error) {
	if s.Payment == nil || s.Payment.OrderID != orderID {
		return nil, domainErrors.ErrNotFound
	}
	copied := *s.Payment
	return &copied, nil
}

func (s *PaymentRepositoryStub) MarkPaid(_ context.Context, paymentID int64, transactionID, bankCode, rawCallback string) (bool, error) {
	if s.Payment == nil || s.Payment.ID != paymentID {
		return false, nil
	}
	if s.Payment.Status != model.PaymentStatusPending && s.Payment.Status != model.PaymentStatusFailed {
		return false, nil
	}
	now := time.Now()
	s.Payment.Status = model.PaymentStatusPaid
	s.Payment.TransactionID = transactionID
	s.Payment.BankCode = bankCode
	s.Payment.RawCallback = rawCallback
	s.Payment.PaidAt = &now
	return true, nil
}

func (s *PaymentRepositoryStub) MarkFailed(_ context.Context, paymentID int64, rawCallback string) (bool, error) {
	if s.Payment == nil || s.Payment.ID != paymentID || s.Payment.Status != model.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	s.Payment.Status = model.PaymentStatusFailed
	s.Payment.RawCallback = rawCallback
	s.Payment.FailedAt = &now
	return true, nil
}

func (s *PaymentRepositoryStub) MarkCODCollected(_ context.Context, paymentID int64) (bool, error) {
	if s.Payment == nil || s.Payment.ID != paymentID || s.Payment.Status != model.PaymentStatusPending {
		return false, nil
	}
	s.Payment.Status = model.PaymentStatusCODCollected
	return true, nil
}

// InventoryRepositoryStub serves a fixed variant catalog and accepts every
// reservation call without tracking counters.
type InventoryRepositoryStub struct {
	Variants []model.ProductVariant
}

func (s *InventoryRepositoryStub) GetVariant(_ context.Context, variantID int64) (*model.ProductVariant, error) {
	for _, v := range s.Variants {
		if v.ID == variantID {
			copied := v
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *InventoryRepositoryStub) GetVariants(_ context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	var out []model.ProductVariant
	for _, id := range variantIDs {
		for _, v := range s.Variants {
			if v.ID == id {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (s *InventoryRepositoryStub) ReserveVariant(context.Context, int64, int64, int, string, string, time.Time) error {
	return nil
}

func (s *InventoryRepositoryStub) ReleaseReservations(context.Context, int64) ([]model.StockReservation, error) {
	return nil, nil
}

func (s *InventoryRepositoryStub) ConfirmReservations(context.Context, int64) ([]model.StockReservation, error) {
	return nil, nil
}

func (s *InventoryRepositoryStub) RestockAvailable(context.Context, int64, int) error {
	return nil
}

func (s *InventoryRepositoryStub) RestockItems(context.Context, []repository.ItemQuantity) error {
	return nil
}

func (s *InventoryRepositoryStub) ListReservationsByOrder(context.Context, int64) ([]model.StockReservation, error) {
	return nil, nil
}

func (s *InventoryRepositoryStub) ListExpiredReservations(context.Context, time.Time, int) ([]model.StockReservation, error) {
	return nil, nil
}

// LoyaltyRepositoryStub holds one account, its tier, and the current usage
// row.
type LoyaltyRepositoryStub struct {
	Account *model.LoyaltyAccount
	Tiers   []model.LoyaltyTier
	Usage   *model.DiscountUsage

	Increments int
}

func (s *LoyaltyRepositoryStub) GetAccount(_ context.Context, userID int64) (*model.LoyaltyAccount, error) {
	if s.Account == nil || s.Account.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	copied := *s.Account
	return &copied, nil
}

func (s *LoyaltyRepositoryStub) GetTier(_ context.Context, tierID int64) (*model.LoyaltyTier, error) {
	for _, t := range s.Tiers {
		if t.ID == tierID {
			copied := t
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *LoyaltyRepositoryStub) ListTiers(context.Context) ([]model.LoyaltyTier, error) {
	return s.Tiers, nil
}

func (s *LoyaltyRepositoryStub) AddPoints(_ context.Context, userID int64, delta int64) (int64, error) {
	if s.Account == nil || s.Account.UserID != userID {
		return 0, domainErrors.ErrNotFound
	}
	s.Account.Points += delta
	return s.Account.Points, nil
}

func (s *LoyaltyRepositoryStub) SetTier(_ context.Context, userID, tierID int64) error {
	if s.Account == nil || s.Account.UserID != userID {
		return domainErrors.ErrNotFound
	}
	s.Account.TierID = tierID
	return nil
}

func (s *LoyaltyRepositoryStub) GetUsage(_ context.Context, userID, tierID int64, month, year int) (*model.DiscountUsage, error) {
	u := s.Usage
	if u == nil || u.UserID != userID || u.TierID != tierID || u.Month != month || u.Year != year {
		return nil, domainErrors.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *LoyaltyRepositoryStub) IncrementUsage(_ context.Context, userID, tierID int64, month, year, limit int) (bool, error) {
	if s.Usage != nil && s.Usage.UserID == userID && s.Usage.TierID == tierID && s.Usage.Month == month && s.Usage.Year == year {
		if s.Usage.Used >= limit {
			return false, nil
		}
		s.Usage.Used++
		s.Increments++
		return true, nil
	}
	s.Usage = &model.DiscountUsage{UserID: userID, TierID: tierID, Month: month, Year: year, Used: 1}
	s.Increments++
	return true, nil
}

func (s *LoyaltyRepositoryStub) DecrementUsage(_ context.Context, userID, tierID int64, month, year int) error {
	if s.Usage != nil && s.Usage.UserID == userID && s.Usage.TierID == tierID && s.Usage.Month == month && s.Usage.Year == year && s.Usage.Used > 0 {
		s.Usage.Used--
	}
	return nil
}
