package events

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/velostore/ordercore/internal/config"
)

// Module wires the event publisher: kafka when brokers are configured,
// otherwise a no-op sink.
var Module = fx.Provide(newPublisher)

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, events disabled")
		return Noop{}
	}

	publisher := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}
