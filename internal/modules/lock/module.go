package lock

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/modules/config"
	"alpha_bot/internal/modules/lock/service"
	"alpha_bot/pkg/logger"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module отдаёт service.Locker: Redis, если задан адрес, иначе локальный.
func Module() fx.Option {
	return fx.Module("lock",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config, m *instrumentation.Metrics) (service.Locker, error) {
				if cfg.Redis.Addr == "" {
					logger.Info("redis.addr is empty, using in-process owner locks")
					return service.NewObserved(service.NewLocal(), m), nil
				}

				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if err := client.Ping(ctx).Err(); err != nil {
							return fmt.Errorf("redis ping failed: %w", err)
						}
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return client.Close()
					},
				})
				return service.NewObserved(service.NewRedis(client, cfg.Redis.LockTTL), m), nil
			},
		),
	)
}
