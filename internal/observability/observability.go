package observability

import (
	"context"

	"github.com/neturelabs/affiliate/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Invoke(SetupTracing),
)

func NewLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// SetupTracing installs a global tracer provider exporting over OTLP/gRPC.
// When no endpoint is configured tracing stays on the default no-op provider.
func SetupTracing(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) {
	endpoint := cfg.Observability.OTLPEndpoint
	if endpoint == "" {
		return
	}

	var tp *sdktrace.TracerProvider

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			exporter, err := otlptracegrpc.New(ctx,
				otlptracegrpc.WithEndpoint(endpoint),
				otlptracegrpc.WithInsecure(),
			)
			if err != nil {
				return err
			}
			res, err := resource.New(ctx,
				resource.WithAttributes(semconv.ServiceName(cfg.Observability.ServiceName)),
			)
			if err != nil {
				return err
			}
			tp = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(res),
			)
			otel.SetTracerProvider(tp)
			log.Info("tracing enabled", zap.String("endpoint", endpoint))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if tp == nil {
				return nil
			}
			return tp.Shutdown(ctx)
		},
	})
}
