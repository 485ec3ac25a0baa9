package worker

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/velostore/ordercore/internal/config"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/lock"
	"github.com/velostore/ordercore/internal/reservation"
	"github.com/velostore/ordercore/internal/usecase"
)

// Module wires the compensation sweeper.
var Module = fx.Provide(newSweeper)

type sweeperParams struct {
	fx.In

	Orders    repository.OrderRepository
	Payments  repository.PaymentRepository
	Inventory repository.InventoryRepository
	Stock     *reservation.Engine
	Pipeline  *usecase.OrderUseCase
	Locker    lock.Locker
	Config    *config.Config
	Logger    *slog.Logger
}

func newSweeper(p sweeperParams) *Sweeper {
	return NewSweeper(
		p.Orders,
		p.Payments,
		p.Inventory,
		p.Stock,
		p.Pipeline,
		p.Locker,
		p.Config.SweepInterval,
		p.Config.CompletionGrace,
		p.Config.RefundGrace,
		p.Config.SweepBatchSize,
		p.Logger,
	)
}
