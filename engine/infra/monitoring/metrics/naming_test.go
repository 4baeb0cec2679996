package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricName(t *testing.T) {
	t.Run("Should add the namespace prefix once", func(t *testing.T) {
		assert.Equal(t, "conduit_requests_total", MetricName("requests_total"))
		assert.Equal(t, "conduit_custom_metric", MetricName("conduit_custom_metric"))
		assert.Equal(t, "conduit_", MetricName(""))
	})
}

func TestMetricNameWithSubsystem(t *testing.T) {
	tests := []struct {
		name       string
		subsystem  string
		metricName string
		expected   string
	}{
		{name: "subsystem and name", subsystem: "generator", metricName: "runs_total", expected: "conduit_generator_runs_total"},
		{name: "subsystem trims underscore", subsystem: "_resources_", metricName: "operations_total", expected: "conduit_resources_operations_total"},
		{name: "empty name", subsystem: "extensions", metricName: "", expected: "conduit_extensions"},
		{name: "empty subsystem", subsystem: "", metricName: "uploads_total", expected: "conduit_uploads_total"},
		{name: "already prefixed", subsystem: "x", metricName: "conduit_existing_metric", expected: "conduit_existing_metric"},
	}
	for _, tt := range tests {
		t.Run("Should build "+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MetricNameWithSubsystem(tt.subsystem, tt.metricName))
		})
	}
}
