package postgres

import (
	"alpha_bot/internal/modules/config"
	"alpha_bot/pkg/db"
	"alpha_bot/pkg/logger"
	"context"
	"fmt"

	"go.uber.org/fx"
)

// Module отдаёт *db.PgTxManager; при пустом db_dsn: nil, и репозитории
// переключаются на память.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					logger.Warn("db_dsn is empty, state is kept in memory")
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:      cfg.DB,
					MaxConns: cfg.DBMaxConns,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, err
				}

				tx := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						tx.Close()
						return nil
					},
				})
				return tx, nil
			},
		),
	)
}
