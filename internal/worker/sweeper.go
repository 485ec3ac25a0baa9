package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/lock"
)

// graceSweepInterval is the cadence of the auto-complete and refund-confirm
// sweeps. Their grace periods are measured in days, so a daily pass is
// frequent enough.
const graceSweepInterval = 24 * time.Hour

// Pipeline is the subset of the order orchestrator the sweeper drives.
type Pipeline interface {
	Transition(ctx context.Context, orderID int64, target status.Status, role status.Role, note string) (*model.Order, error)
	SetPaymentState(ctx context.Context, orderID int64, state model.PaymentState) error
}

// StockReleaser puts an order's outstanding reservations back into the
// sellable pool.
type StockReleaser interface {
	Release(ctx context.Context, orderID int64) error
}

// Sweeper runs the compensation passes that keep the pipeline from leaking:
// expired unpaid orders are failed and their stock released, old delivered
// orders complete, old refunds are confirmed, and reservations stranded by a
// crashed process are reconciled. Per-order errors are logged and never
// abort the rest of the batch.
type Sweeper struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	inventory repository.InventoryRepository
	stock     StockReleaser
	pipeline  Pipeline
	locker    lock.Locker
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	completionGrace time.Duration
	refundGrace     time.Duration

	now    func() time.Time
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSweeper constructs the sweeper over the shared order pipeline.
func NewSweeper(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	inventory repository.InventoryRepository,
	stock StockReleaser,
	pipeline Pipeline,
	locker lock.Locker,
	interval time.Duration,
	completionGrace, refundGrace time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Sweeper{
		orders:          orders,
		payments:        payments,
		inventory:       inventory,
		stock:           stock,
		pipeline:        pipeline,
		locker:          locker,
		interval:        interval,
		batchSize:       batchSize,
		completionGrace: completionGrace,
		refundGrace:     refundGrace,
		now:             time.Now,
		logger:          logger,
	}
}

// Start launches the sweep loops in the background.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	loops := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"payment-timeout", s.interval, s.sweepExpired},
		{"reservation-reconcile", s.interval, s.sweepStrandedReservations},
		{"auto-complete", graceSweepInterval, s.sweepCompletable},
		{"refund-confirm", graceSweepInterval, s.sweepRefunded},
	}
	for _, loop := range loops {
		s.wg.Add(1)
		go s.loop(runCtx, loop.name, loop.interval, loop.run)
	}
}

// Stop cancels the loops and waits for in-flight batches to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.lease(ctx, name, interval) {
				continue
			}
			run(ctx)
		}
	}
}

// lease elects a leader per sweep per tick: the instance that wins the
// redis lease runs the batch, everyone else skips. The lease expires on its
// own, so a crashed leader only costs one interval.
func (s *Sweeper) lease(ctx context.Context, name string, ttl time.Duration) bool {
	won, err := s.locker.TryLease(ctx, lock.SweepLeaseKey(name), ttl)
	if err != nil {
		s.logger.Error("sweep lease failed", slog.String("sweep", name), slog.String("error", err.Error()))
		return false
	}
	return won
}

// sweepExpired fails orders whose payment window elapsed without a
// successful payment. The transition releases their reserved stock and
// refunds tentatively spent points.
func (s *Sweeper) sweepExpired(ctx context.Context) {
	orders, err := s.orders.ListExpiredPendingPayment(ctx, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error("expired order fetch failed", slog.String("error", err.Error()))
		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pipeline.Transition(ctx, order.ID, status.ProcessingFailed, status.RoleSystem, "payment window expired"); err != nil {
			s.logger.Error("timeout sweep failed for order",
				slog.String("order_no", order.Number),
				slog.String("error", err.Error()))
			continue
		}
		s.failPendingPayment(ctx, order)
	}
}

// failPendingPayment marks the order's payment attempt failed, if one was
// ever started. The guarded update keeps a concurrently settled payment
// intact.
func (s *Sweeper) failPendingPayment(ctx context.Context, order model.Order) {
	payment, err := s.payments.GetByOrder(ctx, order.ID)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrNotFound) {
			s.logger.Error("payment lookup failed",
				slog.String("order_no", order.Number),
				slog.String("error", err.Error()))
		}
		return
	}

	if _, err := s.payments.MarkFailed(ctx, payment.ID, "payment window expired"); err != nil {
		s.logger.Error("payment failure mark failed",
			slog.String("order_no", order.Number),
			slog.String("error", err.Error()))
		return
	}
	if err := s.pipeline.SetPaymentState(ctx, order.ID, model.PaymentStateFailed); err != nil {
		s.logger.Error("payment state update failed",
			slog.String("order_no", order.Number),
			slog.String("error", err.Error()))
	}
}

// sweepStrandedReservations releases reservations whose lease expired while
// their order is gone or already resolved. The lease TTL alone is not a
// cleanup path: a process that died after reserving but before transitioning
// leaves rows behind that only this pass removes. Orders still awaiting
// payment are left to the timeout sweep.
func (s *Sweeper) sweepStrandedReservations(ctx context.Context) {
	reservations, err := s.inventory.ListExpiredReservations(ctx, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error("expired reservation fetch failed", slog.String("error", err.Error()))
		return
	}

	seen := make(map[int64]bool, len(reservations))
	for _, r := range reservations {
		if ctx.Err() != nil {
			return
		}
		if seen[r.OrderID] {
			continue
		}
		seen[r.OrderID] = true

		order, err := s.orders.GetByID(ctx, r.OrderID)
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
		case err != nil:
			s.logger.Error("order lookup failed for stranded reservation",
				slog.Int64("order_id", r.OrderID),
				slog.String("error", err.Error()))
			continue
		case order.Status == status.PendingPayment:
			continue
		case !status.IsTerminal(order.Status):
			s.logger.Warn("expired reservation on live order",
				slog.Int64("order_id", r.OrderID),
				slog.String("status", string(order.Status)))
			continue
		}

		if err := s.stock.Release(ctx, r.OrderID); err != nil {
			s.logger.Error("stranded reservation release failed",
				slog.Int64("order_id", r.OrderID),
				slog.String("error", err.Error()))
		}
	}
}

// sweepCompletable completes delivered orders the buyer never confirmed,
// which awards their loyalty points inside the orchestrator.
func (s *Sweeper) sweepCompletable(ctx context.Context) {
	cutoff := s.now().Add(-s.completionGrace)
	orders, err := s.orders.ListDeliveredBefore(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("delivered order fetch failed", slog.String("error", err.Error()))
		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pipeline.Transition(ctx, order.ID, status.Completed, status.RoleSystem, "auto completed after delivery grace"); err != nil {
			s.logger.Error("auto-complete failed for order",
				slog.String("order_no", order.Number),
				slog.String("error", err.Error()))
		}
	}
}

// sweepRefunded confirms refunds the buyer never acknowledged.
func (s *Sweeper) sweepRefunded(ctx context.Context) {
	cutoff := s.now().Add(-s.refundGrace)
	orders, err := s.orders.ListRefundedBefore(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("refunded order fetch failed", slog.String("error", err.Error()))
		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pipeline.Transition(ctx, order.ID, status.RefundConfirmed, status.RoleSystem, "refund confirmation grace elapsed"); err != nil {
			s.logger.Error("refund confirm failed for order",
				slog.String("order_no", order.Number),
				slog.String("error", err.Error()))
		}
	}
}
