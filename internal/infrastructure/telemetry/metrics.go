package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const defaultMetricsInterval = time.Minute

type metricPipeline struct {
	provider *sdkmetric.MeterProvider
}

func (p *Providers) startMetrics(ctx context.Context, res *resource.Resource) error {
	reader := p.settings.MetricReader
	if reader == nil {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.settings.Endpoint)}
		if p.settings.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return err
		}
		interval := p.settings.MetricsInterval
		if interval <= 0 {
			interval = defaultMetricsInterval
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	p.metrics = &metricPipeline{provider: provider}
	p.onShutdown("metrics", provider.Shutdown)
	return nil
}

// Meter returns a meter from the metric pipeline, or a no-op meter when
// metrics are off
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.metrics == nil {
		return noop.NewMeterProvider().Meter(name, opts...)
	}
	return p.metrics.provider.Meter(name, opts...)
}

// Instruments declares instruments on one meter and keeps the first
// registration error, so a group can be declared and checked once. After an
// error every further instrument is a no-op.
type Instruments struct {
	meter metric.Meter
	err   error
}

// NewInstruments starts a declaration group on meter
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Err is the first registration failure, if any
func (in *Instruments) Err() error { return in.err }

func (in *Instruments) fail(name string, err error) {
	if in.err == nil {
		in.err = fmt.Errorf("register %s: %w", name, err)
	}
}

// Counter declares a monotonic int64 counter
func (in *Instruments) Counter(name, description, unit string) metric.Int64Counter {
	if in.err == nil {
		c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err == nil {
			return c
		}
		in.fail(name, err)
	}
	return noop.Int64Counter{}
}

// Gauge declares an int64 up/down counter
func (in *Instruments) Gauge(name, description, unit string) metric.Int64UpDownCounter {
	if in.err == nil {
		g, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err == nil {
			return g
		}
		in.fail(name, err)
	}
	return noop.Int64UpDownCounter{}
}

// Histogram declares a float64 histogram with explicit bucket bounds
func (in *Instruments) Histogram(name, description, unit string, bounds ...float64) metric.Float64Histogram {
	if in.err == nil {
		opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
		if len(bounds) > 0 {
			opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
		}
		h, err := in.meter.Float64Histogram(name, opts...)
		if err == nil {
			return h
		}
		in.fail(name, err)
	}
	return noop.Float64Histogram{}
}

// LatencyBuckets are histogram bounds in seconds for request and operation latency
var LatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
