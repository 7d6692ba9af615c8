package telemetry

import (
	"context"
	"errors"
	"os"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

var (
	errProfilerAddress = errors.New("profiler server address is required")
	errProfilerApp     = errors.New("service name is required for profiling")
)

type profilerHandle struct {
	profiler *pyroscope.Profiler
}

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

func (p *Providers) startProfiler() error {
	switch {
	case p.settings.ProfilerAddress == "":
		return errProfilerAddress
	case p.settings.ServiceName == "":
		return errProfilerApp
	}

	tags := map[string]string{}
	if host, err := os.Hostname(); err == nil && host != "" {
		tags["hostname"] = host
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: p.settings.ServiceName,
		ServerAddress:   p.settings.ProfilerAddress,
		Logger:          pyroscopeLogger{p.logger.Named("pyroscope").Sugar()},
		Tags:            tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return err
	}

	p.profiler = &profilerHandle{profiler: profiler}
	p.onShutdown("profiler", func(context.Context) error { return profiler.Stop() })
	return nil
}

type pyroscopeLogger struct {
	s *zap.SugaredLogger
}

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
