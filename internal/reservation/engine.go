package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/lock"
)

// Engine guards the invariant that reserved plus physically consumed
// quantity never exceeds physical stock, across all service instances. It
// holds a per-variant-per-order mutex in the shared lock store and adjusts
// the counters through single-variant database transactions.
type Engine struct {
	locker    lock.Locker
	inventory repository.InventoryRepository
	leaseTTL  time.Duration
	logger    *slog.Logger
}

// NewEngine constructs the reservation engine. leaseTTL bounds how long a
// crashed process can strand a mutex.
func NewEngine(locker lock.Locker, inventory repository.InventoryRepository, leaseTTL time.Duration, logger *slog.Logger) *Engine {
	if leaseTTL <= 0 {
		leaseTTL = 15 * time.Minute
	}
	return &Engine{locker: locker, inventory: inventory, leaseTTL: leaseTTL, logger: logger}
}

type applied struct {
	item  repository.ItemQuantity
	key   string
	token string
	// decremented marks that available_stock was already taken, so rollback
	// must put it back, not just drop the mutex.
	decremented bool
}

// Reserve takes every requested quantity or none. Variants are acquired in
// ascending id order so two checkouts contending for the same pair of
// variants cannot deadlock each other. On any mid-way failure all mutexes
// and counter decrements applied by this call are compensated before the
// error returns.
func (e *Engine) Reserve(ctx context.Context, orderID int64, items []repository.ItemQuantity) error {
	sorted := make([]repository.ItemQuantity, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })

	expiresAt := time.Now().Add(e.leaseTTL)
	var done []applied

	for _, it := range sorted {
		key := lock.VariantKey(it.VariantID, orderID)
		token, err := e.locker.Acquire(ctx, key, e.leaseTTL)
		if err != nil {
			e.rollback(ctx, done)
			return fmt.Errorf("acquire variant %d: %w", it.VariantID, err)
		}
		done = append(done, applied{item: it, key: key, token: token})

		if err := e.inventory.ReserveVariant(ctx, it.VariantID, orderID, it.Quantity, key, token, expiresAt); err != nil {
			e.rollback(ctx, done)
			return fmt.Errorf("reserve variant %d: %w", it.VariantID, err)
		}
		done[len(done)-1].decremented = true
	}

	return nil
}

func (e *Engine) rollback(ctx context.Context, done []applied) {
	for i := len(done) - 1; i >= 0; i-- {
		a := done[i]
		if a.decremented {
			if err := e.inventory.RestockAvailable(ctx, a.item.VariantID, a.item.Quantity); err != nil {
				e.logger.Error("reservation rollback failed",
					slog.Int64("variant_id", a.item.VariantID),
					slog.String("error", err.Error()))
			}
		}
		if err := e.locker.Release(ctx, a.key, a.token); err != nil {
			e.logger.Error("lock release failed during rollback",
				slog.String("key", a.key),
				slog.String("error", err.Error()))
		}
	}
}

// Release puts every outstanding reservation of the order back into the
// sellable pool and drops its mutex. Calling it when nothing remains is a
// no-op, never an error.
func (e *Engine) Release(ctx context.Context, orderID int64) error {
	released, err := e.inventory.ReleaseReservations(ctx, orderID)
	if err != nil {
		return fmt.Errorf("release order %d: %w", orderID, err)
	}
	e.unlock(ctx, released)
	return nil
}

// Confirm converts the order's reservations into permanent physical
// deductions. A physical count below the reserved quantity is a
// consistency violation and surfaces as ErrInsufficientPhysicalStock.
func (e *Engine) Confirm(ctx context.Context, orderID int64) error {
	confirmed, err := e.inventory.ConfirmReservations(ctx, orderID)
	if err != nil {
		return fmt.Errorf("confirm order %d: %w", orderID, err)
	}
	e.unlock(ctx, confirmed)
	return nil
}

// Return re-adds quantities to both counters after goods physically come
// back to the warehouse. The quantities come from the order's item
// snapshot, since the reservations were consumed at confirmation time.
func (e *Engine) Return(ctx context.Context, orderID int64, items []repository.ItemQuantity) error {
	if len(items) == 0 {
		return nil
	}
	if err := e.inventory.RestockItems(ctx, items); err != nil {
		return fmt.Errorf("return order %d: %w", orderID, err)
	}
	return nil
}

func (e *Engine) unlock(ctx context.Context, reservations []model.StockReservation) {
	for _, r := range reservations {
		if err := e.locker.Release(ctx, r.LockKey, r.LockToken); err != nil {
			e.logger.Error("lock release failed",
				slog.String("key", r.LockKey),
				slog.String("error", err.Error()))
		}
	}
}
