// Package metrics defines the instrumentation hook the SDK transport reports
// into, with no-op, Prometheus and OpenTelemetry recorders.
package metrics

import "time"

// Metric names recorded by the SDK transport.
const (
	// RequestsTotal counts finished Gateway calls. Labels: method, status.
	RequestsTotal = "requests_total"

	// RetriesTotal counts retry attempts. Labels: method.
	RetriesTotal = "retries_total"

	// RequestDuration observes wall-clock call latency. Labels: method, status.
	RequestDuration = "request_duration"
)

// Recorder observes SDK activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
