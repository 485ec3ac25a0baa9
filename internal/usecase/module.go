package usecase

import (
	"go.uber.org/fx"

	"github.com/velostore/ordercore/internal/config"
	"github.com/velostore/ordercore/internal/payment/gateway"
	"github.com/velostore/ordercore/internal/reservation"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	func(cfg *config.Config) *gateway.Codec { return gateway.NewCodec(cfg.GatewaySecret) },
	func(e *reservation.Engine) StockEngine { return e },
	NewLoyaltyUseCase,
	NewDiscountUseCase,
	NewOrderUseCase,
	NewPaymentUseCase,
)
