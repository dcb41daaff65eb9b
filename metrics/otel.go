package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName is used for the OpenTelemetry meter.
const instrumentationName = "github.com/applax-dev/gate-sdk/metrics"

// OTelRecorder bridges SDK metrics onto the global OpenTelemetry meter
// provider.
type OTelRecorder struct {
	events  metric.Int64Counter
	latency metric.Float64Histogram
}

// NewOTelRecorder creates the counter and histogram instruments on the global
// meter provider.
func NewOTelRecorder() (Recorder, error) {
	meter := otel.Meter(instrumentationName)

	events, err := meter.Int64Counter(
		"gate.sdk.events",
		metric.WithDescription("Gate SDK event counters"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating event counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		"gate.sdk.latency",
		metric.WithDescription("Gate SDK call latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	return &OTelRecorder{
		events:  events,
		latency: latency,
	}, nil
}

func (o *OTelRecorder) IncCounter(name string, labels map[string]string) {
	o.events.Add(context.Background(), 1, metric.WithAttributes(attrs(name, labels)...))
}

func (o *OTelRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	o.latency.Record(context.Background(), d.Seconds(), metric.WithAttributes(attrs(name, labels)...))
}

func attrs(name string, labels map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(labels)+1)
	out = append(out, attribute.String("type", name))

	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}

	return out
}
