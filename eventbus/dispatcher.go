package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
	"github.com/next-trace/scg-event-stream/contract/metrics"
)

// State is the dispatcher lifecycle: Created -> Running -> Stopped. There is no
// way back; a stopped dispatcher stays stopped.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Dispatcher consumes one bus subscription and routes each envelope to every
// registered handler whose Matches accepts the event. Handlers run
// sequentially in registration order; a handler error or panic is logged and
// counted and never reaches other handlers or the publisher.
type Dispatcher struct {
	bus    *Bus
	name   string
	logger *slog.Logger
	sink   metrics.Sink

	mu       sync.Mutex
	state    State
	handlers []event.Handler
}

// NewDispatcher constructs a dispatcher over bus. name identifies it in logs
// and as the bus subscriber. logger may be nil (slog.Default()) and sink may
// be nil (metrics.Nop()).
func NewDispatcher(bus *Bus, name string, logger *slog.Logger, sink metrics.Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	if sink == nil {
		sink = metrics.Nop()
	}

	return &Dispatcher{
		bus:    bus,
		name:   name,
		logger: logger,
		sink:   sink,
	}
}

// Register appends h to the dispatch order. Handlers can only be registered
// before Start; the handler list is fixed for the dispatcher's running
// lifetime.
func (d *Dispatcher) Register(h event.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateCreated {
		return fmt.Errorf("register %s on %s dispatcher: %w", h.Name(), d.state, d.stateErr())
	}

	d.handlers = append(d.handlers, h)

	return nil
}

// State reports the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// Start subscribes to the bus and launches the dispatch loop on its own
// goroutine. The returned Handle stops the loop: Stop cancels consumption,
// waits for the envelope in flight to finish with every matching handler, and
// guarantees no handler invocation happens after it returns. Envelopes still
// buffered when Stop lands are discarded, not dispatched.
func (d *Dispatcher) Start(ctx context.Context) (*Handle, error) {
	d.mu.Lock()

	if d.state != StateCreated {
		err := fmt.Errorf("start dispatcher %s: %w", d.name, d.stateErr())
		d.mu.Unlock()

		return nil, err
	}

	d.state = StateRunning
	handlers := append([]event.Handler(nil), d.handlers...)
	d.mu.Unlock()

	sub := d.bus.Subscribe(d.name)
	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel)

	go func() {
		defer close(h.done)
		defer sub.Close()

		d.run(runCtx, sub, handlers)

		d.mu.Lock()
		d.state = StateStopped
		d.mu.Unlock()
	}()

	d.logger.Info("dispatcher started",
		slog.String("dispatcher", d.name),
		slog.Int("handlers", len(handlers)))

	return h, nil
}

// stateErr maps the current state to its sentinel; callers hold d.mu.
func (d *Dispatcher) stateErr() error {
	if d.state == StateRunning {
		return serr.ErrAlreadyRunning
	}

	return serr.ErrAlreadyStopped
}

func (d *Dispatcher) run(ctx context.Context, sub *Subscription, handlers []event.Handler) {
	// Recv serves buffered envelopes before it notices cancellation, so the
	// stop check lives between envelopes: the one in flight finishes and the
	// remaining backlog never starts.
	for ctx.Err() == nil {
		env, err := sub.Recv(ctx)
		if err != nil {
			var lag *LagError
			if errors.As(err, &lag) {
				d.logger.Warn("dispatcher lagged",
					slog.String("dispatcher", d.name),
					slog.Uint64("missed", lag.Missed))

				continue
			}
			// Context canceled or subscription closed: the loop is done.
			return
		}

		d.dispatch(ctx, env, handlers)
	}
}

// dispatch runs one envelope through every matching handler. The envelope in
// flight always completes, even when the loop context has been canceled by
// Stop, so handlers never see a mid-envelope cancellation.
func (d *Dispatcher) dispatch(ctx context.Context, env *event.Envelope, handlers []event.Handler) {
	hctx := context.WithoutCancel(ctx)

	for _, h := range handlers {
		if !h.Matches(env.Event) {
			continue
		}

		d.invoke(hctx, h, env)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, h event.Handler, env *event.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.sink.HandlerError(h.Name(), "panic")
			d.logger.Error("handler panicked",
				slog.String("dispatcher", d.name),
				slog.String("handler", h.Name()),
				slog.String("event_type", env.Event.EventType()),
				slog.String("event_id", env.ID.String()),
				slog.Any("panic", r))
		}
	}()

	if err := h.Handle(ctx, env); err != nil {
		d.sink.HandlerError(h.Name(), "error")
		d.logger.Error("handler failed",
			slog.String("dispatcher", d.name),
			slog.String("handler", h.Name()),
			slog.String("event_type", env.Event.EventType()),
			slog.String("event_id", env.ID.String()),
			slog.Any("error", err))
	}
}
