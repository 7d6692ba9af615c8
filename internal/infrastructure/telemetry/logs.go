package telemetry

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logPipeline struct {
	provider *sdklog.LoggerProvider
}

func (p *Providers) startLogs(ctx context.Context, res *resource.Resource) error {
	exporter := p.settings.LogExporter
	if exporter == nil {
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.settings.Endpoint)}
		if p.settings.Insecure {
			opts = append(opts, otlploggrpc.WithInsecure())
		}
		otlp, err := otlploggrpc.New(ctx, opts...)
		if err != nil {
			return err
		}
		exporter = otlp
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(provider)

	p.logs = &logPipeline{provider: provider}
	p.onShutdown("logs", provider.Shutdown)
	return nil
}

// Bridge returns base with its entries at or above level also sent to the
// log pipeline. Without a log pipeline base is returned as is.
func (p *Providers) Bridge(base *zap.Logger, level zapcore.Level) *zap.Logger {
	if p.logs == nil {
		return base
	}
	otelCore, err := zapcore.NewIncreaseLevelCore(
		otelzap.NewCore(p.settings.ServiceName, otelzap.WithLoggerProvider(p.logs.provider)),
		level,
	)
	if err != nil {
		base.Warn("Log bridge disabled", zap.Error(err))
		return base
	}
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, otelCore)
	}))
}
