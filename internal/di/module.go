package di

import (
	"go.uber.org/fx"

	"github.com/velostore/ordercore/internal/app"
	"github.com/velostore/ordercore/internal/config"
	"github.com/velostore/ordercore/internal/events"
	"github.com/velostore/ordercore/internal/lock"
	"github.com/velostore/ordercore/internal/logger"
	"github.com/velostore/ordercore/internal/reservation"
	"github.com/velostore/ordercore/internal/server/http/handlers"
	"github.com/velostore/ordercore/internal/server/http/router"
	"github.com/velostore/ordercore/internal/storage/postgres"
	"github.com/velostore/ordercore/internal/usecase"
	"github.com/velostore/ordercore/internal/worker"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		lock.Module,
		reservation.Module,
		events.Module,
		usecase.Module,
		worker.Module,
		fx.Provide(func(f *app.PipelineFacade) handlers.PipelineFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
