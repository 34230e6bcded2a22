package main

import (
	"alpha_bot/internal/modules/alerts"
	"alpha_bot/internal/modules/config"
	"alpha_bot/internal/modules/health"
	healthService "alpha_bot/internal/modules/health/service"
	"alpha_bot/internal/modules/lock"
	"alpha_bot/internal/modules/observability"
	"alpha_bot/internal/modules/paper"
	"alpha_bot/internal/modules/postgres"
	"alpha_bot/internal/modules/processor"
	telegram "alpha_bot/internal/modules/telegram_bot"
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		config.Module(),
		observability.Module(),
		health.Module(),
		postgres.Module(),
		lock.Module(),
		processor.Module(),
		alerts.Module(),
		paper.Module(),
		telegram.Module(),
		fx.Invoke(func(lc fx.Lifecycle, state *healthService.State) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					state.SetReady(true)
					return nil
				},
				OnStop: func(context.Context) error {
					state.SetReady(false)
					return nil
				},
			})
		}),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
