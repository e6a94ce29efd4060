package eventbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
	"github.com/next-trace/scg-event-stream/contract/metrics"
)

// DefaultBuffer is the per-subscription buffer capacity when WithBuffer is not
// given.
const DefaultBuffer = 256

// Bus is an in-process broadcaster of event envelopes. Every subscription gets
// its own bounded buffer, so one stalled consumer never blocks the publisher
// or its peers; it only loses its own oldest envelopes.
//
// Bus is concurrency-safe and contains no global state.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	buffer int
	logger *slog.Logger
	sink   metrics.Sink
}

// Option configures a Bus instance.
type Option func(*Bus)

// WithBuffer sets the buffer capacity each new subscription starts with.
// Values below 1 are clamped to 1.
func WithBuffer(n int) Option {
	return func(b *Bus) { b.buffer = n }
}

// WithLogger sets the bus logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithSink sets the metrics sink shared by the bus and its subscriptions.
// Defaults to metrics.Nop().
func WithSink(s metrics.Sink) Option {
	return func(b *Bus) { b.sink = s }
}

// New constructs a Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: DefaultBuffer,
		logger: slog.Default(),
		sink:   metrics.Nop(),
	}

	for _, o := range opts {
		o(b)
	}

	if b.buffer < 1 {
		b.buffer = 1
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	if b.sink == nil {
		b.sink = metrics.Nop()
	}

	return b
}

// Publish validates e, wraps it in a fresh envelope scoped to tenantID (and
// optionally actorID) and fans it out to every live subscription. Fan-out is
// atomic: all subscriptions observe the same envelope order. Publishing with
// zero subscribers succeeds; the envelope id is returned either way.
//
// Invalid events are rejected before an envelope is built and reach no
// subscriber.
func (b *Bus) Publish(tenantID uuid.UUID, actorID *uuid.UUID, e event.DomainEvent) (uuid.UUID, error) {
	if e == nil {
		return uuid.Nil, fmt.Errorf("publish: nil event: %w", serr.ErrInvalidEvent)
	}

	if err := e.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("publish %s: %w", e.EventType(), err)
	}

	if tenantID == uuid.Nil {
		verr := &event.ValidationError{Kind: event.ValidationNilUUID, Field: "tenant_id"}
		return uuid.Nil, fmt.Errorf("publish %s: %w", e.EventType(), verr)
	}

	env := event.NewEnvelope(tenantID, actorID, e)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return uuid.Nil, fmt.Errorf("publish %s: %w", e.EventType(), serr.ErrBusClosed)
	}

	for _, sub := range b.subs {
		sub.push(env)
	}
	b.mu.Unlock()

	b.sink.EventPublished(e.EventType())

	return env.ID, nil
}

// Subscribe registers a new independent subscription. name identifies the
// subscriber in logs and drop metrics. Subscribing to a closed bus returns an
// already-closed subscription.
func (b *Bus) Subscribe(name string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		name:   name,
		bus:    b,
		ring:   make([]*event.Envelope, b.buffer),
		notify: make(chan struct{}, 1),
		closed: b.closed,
	}

	if b.closed {
		return sub
	}

	b.subs[sub.id] = sub
	b.sink.SubscriberCount(len(b.subs))

	return sub
}

// Close shuts the bus down. Later publishes fail with ErrBusClosed; existing
// subscriptions drain whatever they have buffered and then report closed.
// Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, sub := range b.subs {
		sub.markClosed()
		delete(b.subs, id)
	}

	b.sink.SubscriberCount(0)
}

// remove detaches a subscription; called from Subscription.Close.
func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[id]; !ok {
		return
	}

	delete(b.subs, id)
	b.sink.SubscriberCount(len(b.subs))
}
