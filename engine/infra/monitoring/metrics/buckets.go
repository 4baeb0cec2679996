package metrics

// HTTPDurationBuckets defines latency buckets for HTTP request duration metrics.
var HTTPDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// GenerationDurationBuckets covers project generation, which includes streaming the archive.
var GenerationDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// StoreDurationBuckets covers single resource store operations.
var StoreDurationBuckets = []float64{0.0001, 0.001, 0.01, 0.1, 1}
