package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// LagError reports that a subscription's buffer overflowed and Missed envelopes
// were dropped oldest-first. It unwraps to errors.ErrLagged. Only the lagging
// subscriber sees it; publishers and other subscribers are unaffected.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscription lagged: missed %d envelopes", e.Missed)
}

func (e *LagError) Unwrap() error { return serr.ErrLagged }

// Subscription is one subscriber's bounded, ordered view of the bus. Envelopes
// arrive in publish order; when the buffer is full the oldest envelope is
// evicted and the gap is reported by the next Recv as a *LagError.
//
// A subscription belongs to a single consumer: Recv must not be called
// concurrently.
type Subscription struct {
	id   uint64
	name string
	bus  *Bus

	mu     sync.Mutex
	ring   []*event.Envelope // fixed-size circular buffer
	head   int               // index of the oldest envelope
	count  int               // occupied slots
	missed uint64            // evictions since the last Recv gap report
	closed bool

	notify chan struct{} // capacity 1; a pending token means "state changed"
}

// Name returns the subscriber name given to Bus.Subscribe.
func (s *Subscription) Name() string { return s.name }

// push appends env, evicting the oldest envelope when the ring is full.
// Called by the bus with its fan-out lock held.
func (s *Subscription) push(env *event.Envelope) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	dropped := false

	if s.count == len(s.ring) {
		s.ring[s.head] = nil
		s.head = (s.head + 1) % len(s.ring)
		s.count--
		s.missed++
		dropped = true
	}

	tail := (s.head + s.count) % len(s.ring)
	s.ring[tail] = env
	s.count++
	s.mu.Unlock()

	if dropped {
		s.bus.sink.EventDropped(s.name)
		s.bus.logger.Debug("subscription dropped oldest envelope", slog.String("subscription", s.name))
	}

	s.signal()
}

// Recv returns the next envelope. When the subscriber has fallen behind, Recv
// first reports the gap as a *LagError counting the dropped envelopes, then
// resumes with the oldest retained envelope. Once the subscription is closed
// and drained, Recv returns ErrSubscriptionClosed.
func (s *Subscription) Recv(ctx context.Context) (*event.Envelope, error) {
	for {
		s.mu.Lock()

		if s.missed > 0 {
			n := s.missed
			s.missed = 0
			s.mu.Unlock()

			return nil, &LagError{Missed: n}
		}

		if s.count > 0 {
			env := s.ring[s.head]
			s.ring[s.head] = nil
			s.head = (s.head + 1) % len(s.ring)
			s.count--
			s.mu.Unlock()

			return env, nil
		}

		if s.closed {
			s.mu.Unlock()

			return nil, serr.ErrSubscriptionClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close detaches the subscription from the bus. Envelopes already buffered can
// still be received; after the drain Recv reports ErrSubscriptionClosed. Close
// is idempotent.
func (s *Subscription) Close() {
	s.bus.remove(s.id)
	s.markClosed()
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
}

// signal leaves a wakeup token for a blocked Recv. The channel holds at most
// one token, so signaling is never blocking and never lost.
func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
