package telegram

import (
	paperService "alpha_bot/internal/modules/paper/service"
	processorService "alpha_bot/internal/modules/processor/service"
	"alpha_bot/internal/modules/telegram_bot/service"
	"alpha_bot/internal/modules/telegram_bot/service/memory"
	"alpha_bot/internal/modules/telegram_bot/service/pg"
	"alpha_bot/pkg/db"
	"context"

	"go.uber.org/fx"
)

func NewUserRepository(tx *db.PgTxManager) service.UserRepository {
	if tx == nil {
		return memory.NewUser()
	}
	return pg.NewUser(tx)
}

func Module() fx.Option {
	return fx.Module("telegram",
		// 1. Репозиторий юзеров
		fx.Provide(
			NewUserRepository,
		),

		// 2. Сервис Telegram как *service.Telegram
		fx.Provide(
			func(c *processorService.Client) service.Tickers { return c },
			service.NewTelegram,
		),

		// 3. Адаптер: *service.Telegram -> paperService.FillNotifier
		fx.Provide(
			func(t *service.Telegram) paperService.FillNotifier {
				return t
			},
		),
		// Запуск основного цикла через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Start(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
