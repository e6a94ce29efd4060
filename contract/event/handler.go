package event

import "context"

// Handler consumes envelopes routed by a dispatcher.
//
// A dispatcher invokes Handle sequentially on its own goroutine, so a handler
// registered with a single dispatcher never sees concurrent calls; handlers
// shared across dispatchers must be safe for concurrent use.
type Handler interface {
	// Name identifies the handler in logs and metrics.
	Name() string

	// Matches reports whether the handler wants e. Called for every published
	// event; keep it cheap.
	Matches(e DomainEvent) bool

	// Handle processes one envelope. Errors are logged and counted by the
	// dispatcher and never affect other handlers or the publisher.
	Handle(ctx context.Context, env *Envelope) error
}
