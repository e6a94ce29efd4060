/*
Package embedded provides the in-process streaming backend: a partitioned,
bounded append-only log per topic. It gives single-node deployments the same
transport surface as a remote broker, including offset-based replay for
consumers, without leaving the process.
*/
package embedded

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// DefaultRetention is the per-partition record cap when the config gives none.
const DefaultRetention = 1024

// Engine is an in-process event.Backend. One engine hosts one stream; its
// topics hold fixed partition sets of bounded logs that evict oldest records
// once retention is reached.
type Engine struct {
	retention int
	logger    *slog.Logger

	mu          sync.Mutex
	provisioned bool
	top         event.Topology
	topics      map[string]*topic
	closed      bool
}

var _ event.Backend = (*Engine)(nil)

// New constructs an engine retaining up to retention records per partition.
// retention values below 1 fall back to DefaultRetention. logger may be nil.
func New(retention int, logger *slog.Logger) *Engine {
	if retention < 1 {
		retention = DefaultRetention
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		retention: retention,
		logger:    logger,
		topics:    make(map[string]*topic),
	}
}

// Connect is a no-op: there is nothing to dial in process.
func (e *Engine) Connect(context.Context) error { return nil }

// EnsureTopology provisions the stream's topics and partitions. It is
// idempotent for an identical topology; asking for a different stream name or
// partition count on a provisioned engine fails with ErrTopologyMismatch
// rather than silently repartitioning.
func (e *Engine) EnsureTopology(_ context.Context, top event.Topology) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("embedded topology: engine shut down: %w", serr.ErrTopologyFailed)
	}

	if e.provisioned {
		if e.top.Stream != top.Stream || e.top.DomainPartitions != top.DomainPartitions {
			return fmt.Errorf("embedded topology: stream %s already provisioned with %d domain partitions: %w",
				e.top.Stream, e.top.DomainPartitions, serr.ErrTopologyMismatch)
		}

		return nil
	}

	for _, spec := range top.Topics() {
		t := &topic{parts: make([]*partition, spec.Partitions)}
		for i := range t.parts {
			t.parts[i] = newPartition(e.retention)
		}

		e.topics[spec.Name] = t
	}

	e.top = top
	e.provisioned = true

	e.logger.Info("embedded stream provisioned",
		slog.String("stream", top.Stream),
		slog.Int("domain_partitions", int(top.DomainPartitions)),
		slog.Int("retention", e.retention))

	return nil
}

// Publish appends rec to its topic partition.
func (e *Engine) Publish(_ context.Context, rec event.Record) error {
	part, err := e.partition(rec.Topic, rec.Partition)
	if err != nil {
		return err
	}

	part.append(rec)

	return nil
}

// Reader opens a consumer over one topic partition starting at offset. Offsets
// older than retention are clamped to the oldest retained record; offsets past
// the tail make the reader wait for new appends.
func (e *Engine) Reader(topicName string, partitionIdx int32, offset uint64) (*Reader, error) {
	part, err := e.partition(topicName, partitionIdx)
	if err != nil {
		return nil, err
	}

	return &Reader{part: part, next: offset}, nil
}

// Shutdown closes the engine: publishes fail and blocked readers wake with
// ErrSubscriptionClosed.
func (e *Engine) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	for _, t := range e.topics {
		for _, p := range t.parts {
			p.close()
		}
	}

	return nil
}

func (e *Engine) partition(topicName string, idx int32) (*partition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("embedded %s: engine shut down: %w", topicName, serr.ErrPublishFailed)
	}

	if !e.provisioned {
		return nil, fmt.Errorf("embedded %s: topology not provisioned: %w", topicName, serr.ErrPublishFailed)
	}

	t, ok := e.topics[topicName]
	if !ok {
		return nil, fmt.Errorf("embedded %s: unknown topic: %w", topicName, serr.ErrPublishFailed)
	}

	if idx < 0 || int(idx) >= len(t.parts) {
		return nil, fmt.Errorf("embedded %s: partition %d out of range: %w", topicName, idx, serr.ErrPublishFailed)
	}

	return t.parts[idx], nil
}

type topic struct {
	parts []*partition
}

type stored struct {
	offset uint64
	rec    event.Record
}

// partition is a bounded log. records[i] holds offset firstOffset+i; evicting
// the oldest record advances firstOffset so offsets stay stable for readers.
type partition struct {
	retention int

	mu          sync.Mutex
	records     []stored
	firstOffset uint64
	nextOffset  uint64
	closed      bool
	updated     chan struct{} // closed and replaced on every append
}

func newPartition(retention int) *partition {
	return &partition{
		retention: retention,
		updated:   make(chan struct{}),
	}
}

func (p *partition) append(rec event.Record) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}

	if len(p.records) >= p.retention {
		n := len(p.records) - p.retention + 1
		p.records = append(p.records[:0:0], p.records[n:]...)
		p.firstOffset += uint64(n)
	}

	p.records = append(p.records, stored{offset: p.nextOffset, rec: rec})
	p.nextOffset++

	ch := p.updated
	p.updated = make(chan struct{})
	p.mu.Unlock()

	close(ch)
}

func (p *partition) close() {
	p.mu.Lock()
	p.closed = true
	ch := p.updated
	p.updated = make(chan struct{})
	p.mu.Unlock()

	close(ch)
}

// Reader consumes one partition in offset order.
//
// A reader belongs to a single consumer: Next must not be called concurrently.
type Reader struct {
	part *partition
	next uint64
}

// Next returns the record at the reader's offset and the offset it was stored
// under, blocking until one is appended. When retention has evicted the
// requested offset, the reader resumes at the oldest retained record; the
// returned offset exposes the jump.
func (r *Reader) Next(ctx context.Context) (event.Record, uint64, error) {
	for {
		r.part.mu.Lock()

		if r.next < r.part.firstOffset {
			r.next = r.part.firstOffset
		}

		if r.next < r.part.nextOffset {
			s := r.part.records[r.next-r.part.firstOffset]
			r.next = s.offset + 1
			r.part.mu.Unlock()

			return s.rec, s.offset, nil
		}

		if r.part.closed {
			r.part.mu.Unlock()

			return event.Record{}, 0, serr.ErrSubscriptionClosed
		}

		ch := r.part.updated
		r.part.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return event.Record{}, 0, ctx.Err()
		}
	}
}
