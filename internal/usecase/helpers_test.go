package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/velostore/ordercore/internal/config"
	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memOrders is an in-memory OrderRepository.
type memOrders struct {
	mu        sync.Mutex
	seq       int64
	orders    map[int64]*model.Order
	history   []model.StatusChange
	deleted   []int64
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[int64]*model.Order)}
}

func (m *memOrders) Create(_ context.Context, order *model.Order) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.seq++
	order.ID = m.seq
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	stored := *order
	m.orders[order.ID] = &stored
	m.history = append(m.history, model.StatusChange{OrderID: order.ID, ToStatus: order.Status})
	return order, nil
}

func (m *memOrders) get(id int64) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *memOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memOrders) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.orders {
		if o.Number == number {
			return m.get(id)
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (m *memOrders) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *memOrders) ApplyTransition(_ context.Context, orderID int64, upd repository.OrderUpdate, change model.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if o.Status != change.FromStatus {
		return domainErrors.ErrConflict
	}
	o.Status = upd.Status
	if upd.PaymentState != nil {
		o.PaymentState = *upd.PaymentState
	}
	if upd.ClearLock {
		o.LockedUntil = nil
	}
	if upd.ConfirmedAt != nil {
		o.ConfirmedAt = upd.ConfirmedAt
	}
	if upd.ShippedAt != nil {
		o.ShippedAt = upd.ShippedAt
	}
	if upd.DeliveredAt != nil {
		o.DeliveredAt = upd.DeliveredAt
	}
	if upd.CancelledAt != nil {
		o.CancelledAt = upd.CancelledAt
	}
	if upd.CompletedAt != nil {
		o.CompletedAt = upd.CompletedAt
	}
	if upd.RefundedAt != nil {
		o.RefundedAt = upd.RefundedAt
	}
	m.history = append(m.history, change)
	return nil
}

func (m *memOrders) History(_ context.Context, orderID int64) ([]model.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.StatusChange
	for _, c := range m.history {
		if c.OrderID == orderID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *memOrders) SetPaymentState(_ context.Context, orderID int64, state model.PaymentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	o.PaymentState = state
	return nil
}

func (m *memOrders) Delete(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
	m.deleted = append(m.deleted, orderID)
	return nil
}

func (m *memOrders) ListExpiredPendingPayment(context.Context, time.Time, int) ([]model.Order, error) {
	panic("not implemented")
}

func (m *memOrders) ListDeliveredBefore(context.Context, time.Time, int) ([]model.Order, error) {
	panic("not implemented")
}

func (m *memOrders) ListRefundedBefore(context.Context, time.Time, int) ([]model.Order, error) {
	panic("not implemented")
}

// memPayments is an in-memory PaymentRepository with the PENDING guard.
type memPayments struct {
	mu       sync.Mutex
	seq      int64
	byOrder  map[int64]*model.Payment
	storeErr error
}

func newMemPayments() *memPayments {
	return &memPayments{byOrder: make(map[int64]*model.Payment)}
}

func (m *memPayments) GetOrCreate(_ context.Context, orderID int64, amount float64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return nil, m.storeErr
	}
	if p, ok := m.byOrder[orderID]; ok {
		clone := *p
		return &clone, nil
	}
	m.seq++
	p := &model.Payment{ID: m.seq, OrderID: orderID, Amount: amount, Status: model.PaymentStatusPending, CreatedAt: time.Now()}
	m.byOrder[orderID] = p
	clone := *p
	return &clone, nil
}

func (m *memPayments) GetByOrder(_ context.Context, orderID int64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byOrder[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memPayments) find(paymentID int64) *model.Payment {
	for _, p := range m.byOrder {
		if p.ID == paymentID {
			return p
		}
	}
	return nil
}

func (m *memPayments) MarkPaid(_ context.Context, paymentID int64, transactionID, bankCode, rawCallback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(paymentID)
	if p == nil || (p.Status != model.PaymentStatusPending && p.Status != model.PaymentStatusFailed) {
		return false, nil
	}
	now := time.Now()
	p.Status = model.PaymentStatusPaid
	p.TransactionID = transactionID
	p.BankCode = bankCode
	p.RawCallback = rawCallback
	p.PaidAt = &now
	return true, nil
}

func (m *memPayments) MarkFailed(_ context.Context, paymentID int64, rawCallback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(paymentID)
	if p == nil || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = model.PaymentStatusFailed
	p.RawCallback = rawCallback
	p.FailedAt = &now
	return true, nil
}

func (m *memPayments) MarkCODCollected(_ context.Context, paymentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(paymentID)
	if p == nil || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = model.PaymentStatusCODCollected
	p.PaidAt = &now
	return true, nil
}

// memLoyalty is an in-memory LoyaltyRepository.
type memLoyalty struct {
	mu       sync.Mutex
	accounts map[int64]*model.LoyaltyAccount
	tiers    map[int64]model.LoyaltyTier
	usages   map[string]*model.DiscountUsage
	setTiers []int64
}

func newMemLoyalty() *memLoyalty {
	return &memLoyalty{
		accounts: make(map[int64]*model.LoyaltyAccount),
		tiers:    make(map[int64]model.LoyaltyTier),
		usages:   make(map[string]*model.DiscountUsage),
	}
}

func usageKey(userID, tierID int64, month, year int) string {
	return fmt.Sprintf("%d:%d:%d:%d", userID, tierID, month, year)
}

func (m *memLoyalty) GetAccount(_ context.Context, userID int64) (*model.LoyaltyAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memLoyalty) GetTier(_ context.Context, tierID int64) (*model.LoyaltyTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tiers[tierID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &t, nil
}

func (m *memLoyalty) ListTiers(_ context.Context) ([]model.LoyaltyTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.LoyaltyTier
	for _, t := range m.tiers {
		result = append(result, t)
	}
	return result, nil
}

func (m *memLoyalty) AddPoints(_ context.Context, userID int64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		a = &model.LoyaltyAccount{UserID: userID, TierID: 1}
		m.accounts[userID] = a
	}
	a.Points += delta
	if a.Points < 0 {
		a.Points = 0
	}
	return a.Points, nil
}

func (m *memLoyalty) SetTier(_ context.Context, userID, tierID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	a.TierID = tierID
	m.setTiers = append(m.setTiers, tierID)
	return nil
}

func (m *memLoyalty) GetUsage(_ context.Context, userID, tierID int64, month, year int) (*model.DiscountUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.usages[usageKey(userID, tierID, month, year)]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memLoyalty) IncrementUsage(_ context.Context, userID, tierID int64, month, year, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := usageKey(userID, tierID, month, year)
	u, ok := m.usages[key]
	if !ok {
		m.usages[key] = &model.DiscountUsage{UserID: userID, TierID: tierID, Month: month, Year: year, Used: 1}
		return true, nil
	}
	if u.Used >= limit {
		return false, nil
	}
	u.Used++
	return true, nil
}

func (m *memLoyalty) DecrementUsage(_ context.Context, userID, tierID int64, month, year int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.usages[usageKey(userID, tierID, month, year)]
	if ok && u.Used > 0 {
		u.Used--
	}
	return nil
}

// memVariants serves catalog lookups; the stock mutations belong to the
// engine and are not exercised through the orchestrator.
type memVariants struct {
	variants map[int64]model.ProductVariant
}

func (m *memVariants) GetVariant(_ context.Context, variantID int64) (*model.ProductVariant, error) {
	v, ok := m.variants[variantID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &v, nil
}

func (m *memVariants) GetVariants(_ context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	var result []model.ProductVariant
	for _, id := range variantIDs {
		if v, ok := m.variants[id]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

func (m *memVariants) ReserveVariant(context.Context, int64, int64, int, string, string, time.Time) error {
	panic("not implemented")
}

func (m *memVariants) ReleaseReservations(context.Context, int64) ([]model.StockReservation, error) {
	panic("not implemented")
}

func (m *memVariants) ConfirmReservations(context.Context, int64) ([]model.StockReservation, error) {
	panic("not implemented")
}

func (m *memVariants) RestockAvailable(context.Context, int64, int) error {
	panic("not implemented")
}

func (m *memVariants) RestockItems(context.Context, []repository.ItemQuantity) error {
	panic("not implemented")
}

func (m *memVariants) ListReservationsByOrder(context.Context, int64) ([]model.StockReservation, error) {
	panic("not implemented")
}

func (m *memVariants) ListExpiredReservations(context.Context, time.Time, int) ([]model.StockReservation, error) {
	panic("not implemented")
}

// stubEngine records reservation engine calls.
type stubEngine struct {
	mu         sync.Mutex
	reserved   map[int64][]repository.ItemQuantity
	released   []int64
	confirmed  []int64
	returned   map[int64][]repository.ItemQuantity
	reserveErr error
	releaseErr error
	confirmErr error
	returnErr  error
}

func newStubEngine() *stubEngine {
	return &stubEngine{
		reserved: make(map[int64][]repository.ItemQuantity),
		returned: make(map[int64][]repository.ItemQuantity),
	}
}

func (s *stubEngine) Reserve(_ context.Context, orderID int64, items []repository.ItemQuantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved[orderID] = items
	return nil
}

func (s *stubEngine) Release(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, orderID)
	return nil
}

func (s *stubEngine) Confirm(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmErr != nil {
		return s.confirmErr
	}
	s.confirmed = append(s.confirmed, orderID)
	return nil
}

func (s *stubEngine) Return(_ context.Context, orderID int64, items []repository.ItemQuantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.returnErr != nil {
		return s.returnErr
	}
	s.returned[orderID] = items
	return nil
}

// capturePublisher records emitted events.
type capturePublisher struct {
	mu        sync.Mutex
	created   []events.OrderCreatedPayload
	updated   []events.StatusUpdatedPayload
	cancelled []events.StatusUpdatedPayload
}

func (c *capturePublisher) OrderCreated(_ context.Context, p events.OrderCreatedPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, p)
}

func (c *capturePublisher) OrderStatusUpdated(_ context.Context, p events.StatusUpdatedPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated = append(c.updated, p)
}

func (c *capturePublisher) OrderCancelled(_ context.Context, p events.StatusUpdatedPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, p)
}

// orchestratorFixture bundles a fully wired orchestrator with its fakes.
type orchestratorFixture struct {
	uc        *OrderUseCase
	orders    *memOrders
	loyalty   *memLoyalty
	payments  *memPayments
	engine    *stubEngine
	publisher *capturePublisher
}

func newOrchestratorFixture(variants map[int64]model.ProductVariant) *orchestratorFixture {
	cfg := &config.Config{PaymentWindow: 15 * time.Minute, PointsPerUnit: 1000}
	orders := newMemOrders()
	loyaltyRepo := newMemLoyalty()
	engine := newStubEngine()
	publisher := &capturePublisher{}
	logger := testLogger()

	loyalty := NewLoyaltyUseCase(loyaltyRepo, cfg, logger)
	discounts := NewDiscountUseCase(loyaltyRepo)
	uc := NewOrderUseCase(orders, &memVariants{variants: variants}, engine, discounts, loyalty, publisher, cfg, logger)

	return &orchestratorFixture{
		uc:        uc,
		orders:    orders,
		loyalty:   loyaltyRepo,
		payments:  newMemPayments(),
		engine:    engine,
		publisher: publisher,
	}
}
