package metrics

import "time"

// NoopRecorder discards every observation. It is the default recorder.
type NoopRecorder struct{}

// NewNoop returns a recorder that discards everything.
func NewNoop() Recorder { return NoopRecorder{} }

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
