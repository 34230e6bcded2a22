package processor

import (
	"alpha_bot/internal/modules/config"
	"alpha_bot/internal/modules/processor/service"
	"context"

	"go.uber.org/fx"
)

func NewPrecision(cfg *config.Config) (*service.Precision, error) {
	return service.LoadPrecision(cfg.Processor.PrecisionFile)
}

func Module() fx.Option {
	return fx.Module("processor",
		fx.Provide(
			service.NewClient,
			NewPrecision,
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return c.Close()
				},
			})
		}),
	)
}
