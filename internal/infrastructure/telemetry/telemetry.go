// Package telemetry wires OpenTelemetry tracing, metrics and logs, plus
// optional Pyroscope profiling, for the finanzas backend.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported resource
const ServiceVersion = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Settings selects which signals Start brings up. Every signal shares one
// collector endpoint and one service resource.
type Settings struct {
	ServiceName string
	Endpoint    string
	Insecure    bool

	Traces        bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration

	Logs bool

	Profiling       bool
	ProfilerAddress string
	SpanProfiles    bool

	// Test hooks. A non-nil value replaces the OTLP exporter of its signal.
	SpanExporter sdktrace.SpanExporter
	MetricReader sdkmetric.Reader
	LogExporter  sdklog.Exporter
}

// Providers owns the signal pipelines started for the process. Accessors on
// a signal that was not started fall back to the global no-op providers.
type Providers struct {
	settings Settings
	logger   *zap.Logger

	traces   *tracePipeline
	metrics  *metricPipeline
	logs     *logPipeline
	profiler *profilerHandle

	stops        []namedStop
	shutdownOnce sync.Once
	shutdownErr  error
}

type namedStop struct {
	name string
	stop func(context.Context) error
}

// Start brings up each enabled signal in order traces, metrics, logs,
// profiler. If one fails the ones already running are shut down.
func Start(ctx context.Context, s Settings, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{settings: s, logger: logger}

	res, err := serviceResource(s.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	steps := []struct {
		name  string
		on    bool
		start func(context.Context, *resource.Resource) error
	}{
		{"traces", s.Traces, p.startTraces},
		{"metrics", s.Metrics, p.startMetrics},
		{"logs", s.Logs, p.startLogs},
		{"profiler", s.Profiling, func(context.Context, *resource.Resource) error { return p.startProfiler() }},
	}
	for _, step := range steps {
		if !step.on {
			continue
		}
		if err := step.start(ctx, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("start %s: %w", step.name, err)
		}
	}
	if s.SpanProfiles {
		p.linkSpanProfiles()
	}

	logger.Info("Telemetry started",
		zap.String("service_name", s.ServiceName),
		zap.Bool("traces", p.TracingEnabled()),
		zap.Bool("metrics", p.MetricsEnabled()),
		zap.Bool("logs", p.LogsEnabled()),
		zap.Bool("profiling", p.ProfilingEnabled()),
	)
	return p, nil
}

func serviceResource(name string) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(ServiceVersion),
	))
}

func (p *Providers) onShutdown(name string, stop func(context.Context) error) {
	p.stops = append(p.stops, namedStop{name: name, stop: stop})
}

// Shutdown stops the signals in reverse start order, flushing what is
// buffered. Later calls return the first call's result.
func (p *Providers) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		var errs []error
		for i := len(p.stops) - 1; i >= 0; i-- {
			if err := p.stops[i].stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.stops[i].name, err))
			}
		}
		p.shutdownErr = errors.Join(errs...)
		if p.shutdownErr != nil {
			p.logger.Error("Telemetry shutdown incomplete", zap.Error(p.shutdownErr))
		}
	})
	return p.shutdownErr
}

// Flush pushes buffered spans, metrics and log records to their exporters
func (p *Providers) Flush(ctx context.Context) error {
	var errs []error
	if p.traces != nil {
		errs = append(errs, p.traces.provider.ForceFlush(ctx))
	}
	if p.metrics != nil {
		errs = append(errs, p.metrics.provider.ForceFlush(ctx))
	}
	if p.logs != nil {
		errs = append(errs, p.logs.provider.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

func (p *Providers) TracingEnabled() bool   { return p.traces != nil }
func (p *Providers) MetricsEnabled() bool   { return p.metrics != nil }
func (p *Providers) LogsEnabled() bool      { return p.logs != nil }
func (p *Providers) ProfilingEnabled() bool { return p.profiler != nil }

// SpanProfilesEnabled reports whether CPU samples carry span ids
func (p *Providers) SpanProfilesEnabled() bool {
	return p.traces != nil && p.traces.spanProfiles
}
