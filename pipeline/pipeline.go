/*
Package pipeline assembles the event stream subsystem: one bus, one dispatcher,
and, when a transport is configured, one forwarder. It owns startup order and
graceful stop so applications wire the whole thing in a few calls:

	p := pipeline.New(pipeline.WithTransport(tr))
	_ = p.Register(indexHandler)
	_ = p.Start(ctx)
	defer p.Stop()

	id, err := p.Publish(tenantID, nil, events.NodeCreated{...})

Without WithTransport the pipeline runs in local-only mode: events reach every
in-process handler but never leave the process. That is a logged, expected
deployment shape, not an error.
*/
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
	"github.com/next-trace/scg-event-stream/contract/metrics"
	"github.com/next-trace/scg-event-stream/eventbus"
)

// Pipeline is the composed subsystem. Construct with New, feed handlers with
// Register, then Start once. Publish is safe from any goroutine between Start
// and Stop.
type Pipeline struct {
	bus        *eventbus.Bus
	dispatcher *eventbus.Dispatcher
	transport  event.Transport
	logger     *slog.Logger

	mu      sync.Mutex
	handles []*eventbus.Handle
	started bool
	stopped bool
}

type options struct {
	buffer    int
	name      string
	logger    *slog.Logger
	sink      metrics.Sink
	transport event.Transport
}

// Option configures a Pipeline.
type Option func(*options)

// WithBuffer sets the per-subscription buffer capacity.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// WithDispatcherName names the dispatcher in logs and metrics.
func WithDispatcherName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger replaces slog.Default() for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSink wires a metrics sink into the bus, dispatcher, and forwarder path.
func WithSink(sink metrics.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithTransport attaches an external transport; a forwarder is started for it.
// The caller keeps ownership and shuts the transport down after Stop.
func WithTransport(t event.Transport) Option {
	return func(o *options) { o.transport = t }
}

// New composes a pipeline. Nothing runs until Start.
func New(opts ...Option) *Pipeline {
	o := &options{
		buffer: eventbus.DefaultBuffer,
		name:   "dispatcher",
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	bus := eventbus.New(
		eventbus.WithBuffer(o.buffer),
		eventbus.WithLogger(o.logger),
		eventbus.WithSink(o.sink),
	)

	return &Pipeline{
		bus:        bus,
		dispatcher: eventbus.NewDispatcher(bus, o.name, o.logger, o.sink),
		transport:  o.transport,
		logger:     o.logger,
	}
}

// Bus exposes the underlying bus for additional subscribers.
func (p *Pipeline) Bus() *eventbus.Bus { return p.bus }

// Register adds a handler to the dispatcher. Only valid before Start.
func (p *Pipeline) Register(h event.Handler) error {
	return p.dispatcher.Register(h)
}

// Publish validates and fans the event out to every running consumer.
func (p *Pipeline) Publish(tenantID uuid.UUID, actorID *uuid.UUID, e event.DomainEvent) (uuid.UUID, error) {
	return p.bus.Publish(tenantID, actorID, e)
}

// Start launches the dispatcher loop and, when a transport is attached, the
// forwarder loop. Both are subscribed before Start returns, so every envelope
// published afterwards reaches them. Start can be called once.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("start pipeline: %w", serr.ErrAlreadyStopped)
	}

	if p.started {
		return fmt.Errorf("start pipeline: %w", serr.ErrAlreadyRunning)
	}

	dispatchHandle, err := p.dispatcher.Start(ctx)
	if err != nil {
		return err
	}

	p.handles = append(p.handles, dispatchHandle)

	if p.transport == nil {
		p.logger.Info("local_only_mode")
	} else {
		forwarder, err := eventbus.NewForwarder(p.bus, p.transport, p.logger)
		if err != nil {
			dispatchHandle.Stop()

			return err
		}

		forwardHandle, err := forwarder.Start(ctx)
		if err != nil {
			dispatchHandle.Stop()

			return err
		}

		p.handles = append(p.handles, forwardHandle)
	}

	p.started = true

	return nil
}

// Stop winds the pipeline down: consumer loops are stopped (waiting for
// whatever each has in flight), then the bus is closed so later publishes fail
// with ErrBusClosed. Stop is idempotent and safe to call before Start.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	p.stopped = true

	for i := len(p.handles) - 1; i >= 0; i-- {
		p.handles[i].Stop()
	}

	p.handles = nil
	p.bus.Close()
}
