package toggled

import (
	"context"
)

// ObservabilityClient lets applications route the SDK's own health metrics
// (fetch counts and latency, toggle count, flushes, exceptions) into their
// monitoring stack. See the observability/prometheus package for a ready
// made implementation.
type ObservabilityClient interface {
	// Init is called once when a client is constructed
	Init(ctx context.Context) error

	// Increment increments the counter metricName by value
	Increment(metricName string, value int, tags map[string]interface{}) error

	// Gauge sets the gauge metricName to value
	Gauge(metricName string, value float64, tags map[string]interface{}) error

	// Distribution records value in the distribution metricName
	Distribution(metricName string, value float64, tags map[string]interface{}) error

	// Shutdown is called from Client.Shutdown
	Shutdown(ctx context.Context) error
}
