package monitoring

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/conduit/engine/infra/monitoring/metrics"
	"github.com/compozy/conduit/pkg/logger"
	buildversion "github.com/compozy/conduit/pkg/version"
)

const unknownBuildValue = "unknown"

// systemMetrics holds the process level instruments. They are created once per process
// because the exporter registry rejects duplicate registrations.
type systemMetrics struct {
	mu           sync.Mutex
	initialized  bool
	buildInfo    metric.Float64Gauge
	uptime       metric.Float64ObservableGauge
	registration metric.Registration
	startedAt    time.Time
}

var system = &systemMetrics{}

func (s *systemMetrics) init(meter metric.Meter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true
	s.startedAt = time.Now()
	var err error
	s.buildInfo, err = meter.Float64Gauge(
		monitoringmetrics.MetricName("build_info"),
		metric.WithDescription("Conduit build information (value=1)"),
	)
	if err != nil {
		logger.Error("Failed to create build info gauge", "error", err)
	}
	s.uptime, err = meter.Float64ObservableGauge(
		monitoringmetrics.MetricName("uptime_seconds"),
		metric.WithDescription("Seconds since the conduit process started"),
	)
	if err != nil {
		logger.Error("Failed to create uptime gauge", "error", err)
		return
	}
	startedAt := s.startedAt
	gauge := s.uptime
	s.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(gauge, time.Since(startedAt).Seconds())
		return nil
	}, gauge)
	if err != nil {
		logger.Error("Failed to register uptime callback", "error", err)
	}
}

func (s *systemMetrics) record(ctx context.Context) {
	s.mu.Lock()
	gauge := s.buildInfo
	s.mu.Unlock()
	if gauge == nil {
		return
	}
	version, commit, goVersion := getBuildInfo()
	gauge.Record(ctx, 1, metric.WithAttributes(
		attribute.String("version", version),
		attribute.String("commit_hash", commit),
		attribute.String("go_version", goVersion),
	))
	logger.FromContext(ctx).Info("System metrics initialized", "version", version, "commit", commit)
}

func (s *systemMetrics) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registration != nil {
		if err := s.registration.Unregister(); err != nil {
			logger.Error("Failed to unregister uptime callback", "error", err)
		}
	}
	*s = systemMetrics{}
}

// getBuildInfo prefers the linker-injected version and falls back to the module build info.
func getBuildInfo() (version, commit, goVersion string) {
	version = buildversion.GetVersion()
	commit = buildversion.GetCommitHash()
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == unknownBuildValue && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, setting := range info.Settings {
			if commit == unknownBuildValue && setting.Key == "vcs.revision" {
				commit = setting.Value
			}
		}
	}
	return version, commit, runtime.Version()
}

// InitSystemMetrics registers the build info and uptime instruments on meter.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	system.init(meter)
	system.record(ctx)
}

// ResetSystemMetricsForTesting drops the registered instruments so a new meter can be used.
func ResetSystemMetricsForTesting() {
	system.reset()
}
