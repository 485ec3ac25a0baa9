package lock

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/velostore/ordercore/internal/config"
)

// Module wires the redis client and locker for dependency injection.
var Module = fx.Options(
	fx.Provide(newRedisClient),
	fx.Provide(NewRedisLocker),
	fx.Provide(func(l *RedisLocker) Locker { return l }),
	fx.Invoke(registerLifecycle),
)

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func registerLifecycle(lc fx.Lifecycle, client *redis.Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
