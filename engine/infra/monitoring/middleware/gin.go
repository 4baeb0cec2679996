package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/conduit/engine/infra/monitoring/metrics"
	"github.com/compozy/conduit/pkg/logger"
)

const (
	httpSubsystem = "http"
	unmatchedPath = "unmatched"
)

// exported archives range from a few KiB to tens of MiB
var responseSizeBuckets = []float64{1 << 10, 16 << 10, 128 << 10, 1 << 20, 8 << 20, 64 << 20}

type httpInstruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// instruments are cached per meter
var (
	instrumentsMu    sync.Mutex
	instruments      *httpInstruments
	instrumentsMeter metric.Meter
)

func loadInstruments(meter metric.Meter) *httpInstruments {
	if meter == nil {
		return nil
	}
	instrumentsMu.Lock()
	defer instrumentsMu.Unlock()
	if instruments != nil && instrumentsMeter == meter {
		return instruments
	}
	in, err := newInstruments(meter)
	if err != nil {
		logger.Error("Failed to create HTTP metric instruments", "error", err)
		return nil
	}
	instruments, instrumentsMeter = in, meter
	return in
}

func newInstruments(meter metric.Meter) (*httpInstruments, error) {
	total, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem(httpSubsystem, "requests_total"),
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem(httpSubsystem, "request_duration_seconds"),
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.HTTPDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter(
		monitoringmetrics.MetricNameWithSubsystem(httpSubsystem, "requests_in_flight"),
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	size, err := meter.Int64Histogram(
		monitoringmetrics.MetricNameWithSubsystem(httpSubsystem, "response_size_bytes"),
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(responseSizeBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{total: total, duration: duration, inFlight: inFlight, size: size}, nil
}

// ResetMetricsForTesting drops the cached instruments so the next middleware binds a new meter.
func ResetMetricsForTesting() {
	instrumentsMu.Lock()
	defer instrumentsMu.Unlock()
	instruments, instrumentsMeter = nil, nil
}

// HTTPMetrics records request counts, latency and response sizes labelled by route template.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	in := loadInstruments(meter)
	return func(c *gin.Context) {
		if in == nil {
			c.Next()
			return
		}
		ctx := context.WithoutCancel(c.Request.Context())
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)
		c.Next()
		in.record(ctx, c, time.Since(start))
	}
}

func (in *httpInstruments) record(ctx context.Context, c *gin.Context, elapsed time.Duration) {
	path := c.FullPath()
	if path == "" {
		path = unmatchedPath
	}
	attrs := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("path", path),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)
	in.total.Add(ctx, 1, attrs)
	in.duration.Record(ctx, elapsed.Seconds(), attrs)
	if written := c.Writer.Size(); written > 0 {
		in.size.Record(ctx, int64(written), attrs)
	}
}
