package observability

import (
	"alpha_bot/internal/modules/config"
	"alpha_bot/pkg/logger"
	"alpha_bot/pkg/tracing"
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger инициализирует глобальный zap-логгер пакета logger.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(cfg.Service.Name)
	return logger.Init(cfg.Service.LogLevel)
}

// NewTracer поднимает jaeger при tracing.enabled, иначе noop.
func NewTracer(lc fx.Lifecycle, cfg *config.Config, _ *zap.Logger) (opentracing.Tracer, error) {
	tracing.SetServiceName(cfg.Service.Name)
	tracer, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return tracer, nil
}

func Module() fx.Option {
	return fx.Module("observability",
		fx.Provide(
			NewLogger,
			NewTracer,
		),
		// трейсер должен стать глобальным до первого спана
		fx.Invoke(func(lc fx.Lifecycle, l *zap.Logger, _ opentracing.Tracer) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					_ = l.Sync()
					return nil
				},
			})
		}),
	)
}
