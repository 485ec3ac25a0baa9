package reservation

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/velostore/ordercore/internal/config"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/lock"
)

// Module wires the reservation engine.
var Module = fx.Provide(newEngine)

type engineParams struct {
	fx.In

	Locker    lock.Locker
	Inventory repository.InventoryRepository
	Config    *config.Config
	Logger    *slog.Logger
}

func newEngine(p engineParams) *Engine {
	return NewEngine(p.Locker, p.Inventory, p.Config.ReservationLease, p.Logger)
}
