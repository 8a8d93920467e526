// Package metrics defines the instrumentation port for checkout sessions,
// with a prometheus-backed implementation and a noop default.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
