package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// Forwarder bridges the in-process bus onto an external transport. It holds
// one bus subscription and publishes every envelope it receives; a transport
// failure is logged and the envelope abandoned, so local consumers are never
// held up by a degraded broker. The forwarder never retries and never stops on
// a publish error.
type Forwarder struct {
	bus       *Bus
	transport event.Transport
	logger    *slog.Logger

	started atomic.Bool
}

// NewForwarder constructs a forwarder publishing to transport. The transport
// is required; deployments without one should not start a forwarder at all
// (see pipeline.New, which logs local-only mode instead). logger may be nil.
func NewForwarder(bus *Bus, transport event.Transport, logger *slog.Logger) (*Forwarder, error) {
	if transport == nil {
		return nil, fmt.Errorf("forwarder: nil transport: %w", serr.ErrInvalidConfig)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{
		bus:       bus,
		transport: transport,
		logger:    logger,
	}, nil
}

// Start subscribes to the bus and launches the forwarding loop. It can be
// called once. Stopping the returned Handle lets the publish in flight finish
// and then exits without starting the buffered remainder; no publish is
// interrupted mid-operation.
func (f *Forwarder) Start(ctx context.Context) (*Handle, error) {
	if !f.started.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("start forwarder: %w", serr.ErrAlreadyRunning)
	}

	sub := f.bus.Subscribe("forwarder")
	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel)

	go func() {
		defer close(h.done)
		defer sub.Close()

		f.run(runCtx, sub)
	}()

	f.logger.Info("forwarder started",
		slog.String("reliability", f.transport.ReliabilityLevel().String()))

	return h, nil
}

func (f *Forwarder) run(ctx context.Context, sub *Subscription) {
	// Recv serves buffered envelopes before it notices cancellation; checking
	// between envelopes keeps a stopped forwarder from publishing the backlog.
	for ctx.Err() == nil {
		env, err := sub.Recv(ctx)
		if err != nil {
			var lag *LagError
			if errors.As(err, &lag) {
				f.logger.Warn("forwarder lagged",
					slog.Uint64("missed", lag.Missed))

				continue
			}

			return
		}

		// The envelope in flight always completes; Stop only prevents the next
		// receive.
		if err := f.transport.Publish(context.WithoutCancel(ctx), env); err != nil {
			f.logger.Error("forward failed",
				slog.String("event_type", env.Event.EventType()),
				slog.String("event_id", env.ID.String()),
				slog.Any("error", err))
		}
	}
}
