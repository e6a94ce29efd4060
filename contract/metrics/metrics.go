package metrics

import "time"

// Sink receives observations from the bus, dispatchers and transports. The
// subsystem never owns a registry; the application's composition root injects
// whichever Sink it wants (promsink.Sink in production, Nop() otherwise).
//
// Calls happen on hot paths and must be cheap, non-blocking and safe for
// concurrent use.
type Sink interface {
	// EventPublished is called once per event admitted to the bus.
	EventPublished(eventType string)

	// EventDropped is called once per envelope evicted from a lagging
	// subscriber's buffer.
	EventDropped(subscriber string)

	// SubscriberCount reports the current number of live subscriptions.
	SubscriberCount(n int)

	// HandlerError is called when a handler returns an error or panics;
	// kind is "error" or "panic".
	HandlerError(handler, kind string)

	// TransportPublished is called after every transport publish attempt
	// with its duration and outcome.
	TransportPublished(topic string, elapsed time.Duration, err error)
}

// Nop returns a Sink that discards every observation.
func Nop() Sink { return nopSink{} }

type nopSink struct{}

func (nopSink) EventPublished(string)                           {}
func (nopSink) EventDropped(string)                             {}
func (nopSink) SubscriberCount(int)                             {}
func (nopSink) HandlerError(string, string)                     {}
func (nopSink) TransportPublished(string, time.Duration, error) {}
