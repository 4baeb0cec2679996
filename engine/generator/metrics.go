package generator

import (
	"context"
	"sync"
	"time"

	monitoringmetrics "github.com/compozy/conduit/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	generatorSubsystem = "generator"
	outcomeLabel       = "outcome"
	templateSetLabel   = "template_set"

	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeAbandoned = "abandoned"
)

var (
	metricsOnce        sync.Once
	generationsCounter metric.Int64Counter
	generationLatency  metric.Float64Histogram
)

func initMetrics() {
	meter := otel.GetMeterProvider().Meter("conduit.generator")
	var err error
	generationsCounter, err = meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem(generatorSubsystem, "generations_total"),
		metric.WithDescription("Project generations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		generationsCounter = nil
	}
	generationLatency, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem(generatorSubsystem, "generation_duration_seconds"),
		metric.WithDescription("Time from the generation call until the archive is fully produced"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.GenerationDurationBuckets...),
	)
	if err != nil {
		generationLatency = nil
	}
}

// resetMetricsForTesting rebinds the instruments to the current global provider.
func resetMetricsForTesting() {
	metricsOnce = sync.Once{}
	generationsCounter = nil
	generationLatency = nil
}

func recordGeneration(ctx context.Context, outcome, templateSet string, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)
	if templateSet == "" {
		templateSet = "default"
	}
	attrs := metric.WithAttributes(
		attribute.String(outcomeLabel, outcome),
		attribute.String(templateSetLabel, templateSet),
	)
	if generationsCounter != nil {
		generationsCounter.Add(ctx, 1, attrs)
	}
	if generationLatency != nil {
		generationLatency.Record(ctx, elapsed.Seconds(), attrs)
	}
}
