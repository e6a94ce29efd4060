// Package inmemory provides recording doubles for the transport contracts.
// They back tests and examples; nothing leaves the process.
package inmemory

import (
	"context"
	"sync"

	"github.com/next-trace/scg-event-stream/contract/event"
)

// Backend is a thread-safe in-memory event.Backend that records every call.
// Error fields let tests fail individual phases.
type Backend struct {
	mu sync.Mutex

	ConnectErr  error
	TopologyErr error
	PublishErr  error

	Connected   bool
	Provisioned bool
	Topology    event.Topology
	Records     []event.Record
	Shutdowns   int
}

var _ event.Backend = (*Backend)(nil)

// NewBackend creates an empty recording backend.
func NewBackend() *Backend { return &Backend{} }

func (b *Backend) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ConnectErr != nil {
		return b.ConnectErr
	}

	b.Connected = true

	return nil
}

func (b *Backend) EnsureTopology(_ context.Context, top event.Topology) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.TopologyErr != nil {
		return b.TopologyErr
	}

	b.Topology = top
	b.Provisioned = true

	return nil
}

func (b *Backend) Publish(_ context.Context, rec event.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.PublishErr != nil {
		return b.PublishErr
	}

	b.Records = append(b.Records, rec)

	return nil
}

func (b *Backend) Shutdown(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Shutdowns++

	return nil
}

// Snapshot returns a copy of the recorded records for concurrent readers.
func (b *Backend) Snapshot() []event.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]event.Record, len(b.Records))
	copy(out, b.Records)

	return out
}

// Transport is a thread-safe in-memory event.Transport that records the
// envelopes it is asked to publish.
type Transport struct {
	mu sync.Mutex

	Err       error
	Level     event.ReliabilityLevel
	Envelopes []*event.Envelope
}

var _ event.Transport = (*Transport)(nil)

// NewTransport creates a recording transport reporting streaming reliability.
func NewTransport() *Transport {
	return &Transport{Level: event.ReliabilityStreaming}
}

func (t *Transport) Publish(_ context.Context, env *event.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Err != nil {
		return t.Err
	}

	t.Envelopes = append(t.Envelopes, env)

	return nil
}

func (t *Transport) ReliabilityLevel() event.ReliabilityLevel { return t.Level }

// Snapshot returns a copy of the recorded envelopes for concurrent readers.
func (t *Transport) Snapshot() []*event.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*event.Envelope, len(t.Envelopes))
	copy(out, t.Envelopes)

	return out
}
