package alerts

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/modules/alerts/service"
	"alpha_bot/internal/modules/alerts/service/memory"
	"alpha_bot/internal/modules/alerts/service/pg"
	"alpha_bot/internal/modules/config"
	lockService "alpha_bot/internal/modules/lock/service"
	processorService "alpha_bot/internal/modules/processor/service"
	"alpha_bot/pkg/db"

	"go.uber.org/fx"
)

// NewRepository: Postgres, если есть пул, иначе память.
func NewRepository(tx *db.PgTxManager) service.Repository {
	if tx == nil {
		return memory.NewAlerts()
	}
	return pg.NewAlerts(tx)
}

func NewService(
	cfg *config.Config,
	repo service.Repository,
	processor *processorService.Client,
	locker lockService.Locker,
	m *instrumentation.Metrics,
) *service.Service {
	return service.New(service.NewEngine(service.LimitsFromConfig(cfg)), repo, processor, locker, m)
}

func Module() fx.Option {
	return fx.Module("alerts",
		fx.Provide(
			NewRepository,
			NewService,
		),
	)
}
