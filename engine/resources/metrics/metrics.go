package metrics

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
	resourcesSubsystem = "resources"
	operationLabel     = "operation"
	resourceTypeLabel  = "resource_type"
	outcomeLabel       = "outcome"
	outcomeSuccess     = "success"
	outcomeError       = "error"
)

const (
	OperationGet    = "get"
	OperationPut    = "put"
	OperationDelete = "delete"
	OperationList   = "list"
)

var (
	initMu   sync.Mutex
	initDone bool

	operationsCounter metric.Int64Counter
	operationLatency  metric.Float64Histogram
)

// EnsureInitialized creates the instruments on the global meter provider. It is safe to
// call repeatedly; ResetForTesting allows rebinding to a new provider.
func EnsureInitialized() {
	initMu.Lock()
	defer initMu.Unlock()
	if initDone {
		return
	}
	meter := otel.GetMeterProvider().Meter("conduit.resources")
	var err error
	operationsCounter, err = meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem(resourcesSubsystem, "operations_total"),
		metric.WithDescription("Resource store operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return
	}
	operationLatency, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem(resourcesSubsystem, "operation_duration_seconds"),
		metric.WithDescription("Resource operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.StoreDurationBuckets...),
	)
	if err != nil {
		return
	}
	initDone = true
}

func ResetForTesting() {
	initMu.Lock()
	defer initMu.Unlock()
	initDone = false
	operationsCounter = nil
	operationLatency = nil
}

// Operation measures one store call.
type Operation struct {
	ctx       context.Context
	operation string
	typ       string
	start     time.Time
}

func StartOperation(ctx context.Context, operation, resourceType string) *Operation {
	EnsureInitialized()
	return &Operation{ctx: ctx, operation: operation, typ: resourceType, start: time.Now()}
}

// End records the outcome. Instruments missing after a failed initialization are skipped.
func (o *Operation) End(err error) {
	initMu.Lock()
	counter, latency := operationsCounter, operationLatency
	initMu.Unlock()
	if counter == nil || latency == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	attrs := metric.WithAttributes(
		attribute.String(operationLabel, o.operation),
		attribute.String(resourceTypeLabel, o.typ),
		attribute.String(outcomeLabel, outcome),
	)
	counter.Add(o.ctx, 1, attrs)
	latency.Record(o.ctx, time.Since(o.start).Seconds(), attrs)
}
