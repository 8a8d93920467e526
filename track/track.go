// Package track defines the fire-and-forget analytics sink the checkout
// session reports named events to.
package track

import "github.com/vitwit/checkout/logger"

// Event names emitted at the corresponding lifecycle transitions.
const (
	EventCurrencyPicked              = "checkout:currency-picked"
	EventAwaitingPaymentShown        = "checkout:awaiting-payment-shown"
	EventPaymentDetected             = "checkout:payment-detected"
	EventPaymentWaitingConfirmations = "checkout:payment-waiting-for-confirmations"
	EventPaymentCompleted            = "checkout:payment-completed"
	EventPaymentFailed               = "checkout:payment-failed"
	EventPaymentCanceled             = "checkout:payment-canceled"
)

// Sink receives named analytics events. Implementations must not block the
// caller; no response is consumed.
type Sink interface {
	Event(name string, props map[string]any)
}

// NoopSink discards all events.
type NoopSink struct{}

func (NoopSink) Event(string, map[string]any) {}

// LoggerSink writes events to a structured logger, useful in development
// and as a default wiring target.
type LoggerSink struct {
	Log logger.Logger
}

func (s LoggerSink) Event(name string, props map[string]any) {
	if props == nil {
		props = map[string]any{}
	}
	props["event"] = name
	s.Log.Info("track event", props)
}
