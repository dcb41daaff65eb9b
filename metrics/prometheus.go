package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports SDK metrics through a Prometheus registry.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the SDK collectors on the default registry
// and returns the recorder. Call it once per process.
func NewPrometheusRecorder() Recorder {
	return NewPrometheusRecorderWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPrometheusRecorderWithRegisterer registers the SDK collectors on reg.
func NewPrometheusRecorderWithRegisterer(reg prometheus.Registerer) Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gate",
			Name:      "events_total",
			Help:      "Gate SDK event counters",
		},
		[]string{"type", "method", "status"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gate",
			Name:      "latency_seconds",
			Help:      "Gate SDK call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "method", "status"},
	)

	reg.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":   name,
		"method": labels["method"],
		"status": labels["status"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"method":    labels["method"],
		"status":    labels["status"],
	}).Observe(d.Seconds())
}
