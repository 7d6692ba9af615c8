package telemetry

import (
	"context"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

type tracePipeline struct {
	provider     *sdktrace.TracerProvider
	spanProfiles bool
}

func (p *Providers) startTraces(ctx context.Context, res *resource.Resource) error {
	exporter := p.settings.SpanExporter
	if exporter == nil {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.settings.Endpoint)}
		if p.settings.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		otlp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return err
		}
		exporter = otlp
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(p.settings.SamplingRatio)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.traces = &tracePipeline{provider: provider}
	p.onShutdown("traces", provider.Shutdown)
	return nil
}

// samplerFor honours the caller's sampling decision and applies ratio to
// root spans only
func samplerFor(ratio float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}

// linkSpanProfiles labels CPU samples with the active span id. It needs both
// the trace pipeline and the profiler.
func (p *Providers) linkSpanProfiles() {
	if p.traces == nil || p.profiler == nil {
		p.logger.Debug("Span profiles need tracing and profiling, skipping")
		return
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.traces.provider))
	p.traces.spanProfiles = true
	p.logger.Info("Span profiles linked", zap.String("service_name", p.settings.ServiceName))
}
