package paper

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/modules/config"
	healthService "alpha_bot/internal/modules/health/service"
	lockService "alpha_bot/internal/modules/lock/service"
	"alpha_bot/internal/modules/paper/service"
	"alpha_bot/internal/modules/paper/service/memory"
	"alpha_bot/internal/modules/paper/service/pg"
	processorService "alpha_bot/internal/modules/processor/service"
	"alpha_bot/pkg/db"
	"context"

	"go.uber.org/fx"
)

func NewRepository(tx *db.PgTxManager) service.Repository {
	if tx == nil {
		return memory.NewStore()
	}
	return pg.NewStore(tx)
}

func NewService(
	cfg *config.Config,
	repo service.Repository,
	precision *processorService.Precision,
	processor *processorService.Client,
	locker lockService.Locker,
	m *instrumentation.Metrics,
) *service.Service {
	engine := service.NewEngine(service.LimitsFromConfig(cfg), precision)
	return service.New(engine, repo, processor, locker, m)
}

func NewWatcher(cfg *config.Config, svc *service.Service, notify service.FillNotifier, state *healthService.State) *service.Watcher {
	return service.NewWatcher(svc, cfg.Paper.FillInterval, notify, state)
}

func Module() fx.Option {
	return fx.Module("paper",
		fx.Provide(
			NewRepository,
			NewService,
			NewWatcher,
		),
		fx.Invoke(func(lc fx.Lifecycle, w *service.Watcher) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go w.Run(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
