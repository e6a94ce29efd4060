package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/next-trace/scg-event-stream/adapters/inmemory"
	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
	"github.com/next-trace/scg-event-stream/events"
	"github.com/next-trace/scg-event-stream/pipeline"
)

// indexProjection upserts node kinds by node id, the way a search index or
// read model would. Double delivery of the same fact must leave it unchanged.
type indexProjection struct {
	mu        sync.Mutex
	kinds     map[uuid.UUID]string
	processed int
	handled   chan struct{}
}

func newIndexProjection() *indexProjection {
	return &indexProjection{
		kinds:   make(map[uuid.UUID]string),
		handled: make(chan struct{}, 16),
	}
}

func (p *indexProjection) Name() string { return "node-index" }

func (p *indexProjection) Matches(e event.DomainEvent) bool {
	return e.EventType() == events.TypeNodeCreated
}

func (p *indexProjection) Handle(_ context.Context, env *event.Envelope) error {
	created, ok := env.Event.(events.NodeCreated)
	if !ok {
		return errors.New("unexpected event payload")
	}

	p.mu.Lock()
	p.kinds[created.NodeID] = created.Kind
	p.processed++
	p.mu.Unlock()

	p.handled <- struct{}{}

	return nil
}

func (p *indexProjection) snapshot() (int, map[uuid.UUID]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kinds := make(map[uuid.UUID]string, len(p.kinds))
	for k, v := range p.kinds {
		kinds[k] = v
	}

	return p.processed, kinds
}

func waitHandled(t *testing.T, p *indexProjection) {
	t.Helper()

	select {
	case <-p.handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func waitForEnvelopes(t *testing.T, tr *inmemory.Transport, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(tr.Snapshot()) >= n {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("transport received %d envelopes, want %d", len(tr.Snapshot()), n)
}

func TestNodeCreatedDedupEndToEnd(t *testing.T) {
	tr := inmemory.NewTransport()
	proj := newIndexProjection()

	p := pipeline.New(pipeline.WithTransport(tr))
	if err := p.Register(proj); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := p.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	tenant := uuid.New()
	nodeID := uuid.New()
	created := events.NodeCreated{NodeID: nodeID, Kind: "post"}

	if _, err := p.Publish(tenant, nil, created); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	waitHandled(t, proj)

	processed, kinds := proj.snapshot()
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	if len(kinds) != 1 || kinds[nodeID] != "post" {
		t.Fatalf("index = %v", kinds)
	}

	// The same logical fact again: a new envelope is delivered, but the
	// upserting projection must not grow.
	if _, err := p.Publish(tenant, nil, created); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	waitHandled(t, proj)

	processed, kinds = proj.snapshot()
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}

	if len(kinds) != 1 || kinds[nodeID] != "post" {
		t.Fatalf("index after duplicate = %v", kinds)
	}

	waitForEnvelopes(t, tr, 2)

	envs := tr.Snapshot()
	if envs[0].ID == envs[1].ID {
		t.Fatal("each publish must produce a distinct envelope id")
	}
}

func TestLocalOnlyModeDeliversInProcess(t *testing.T) {
	proj := newIndexProjection()

	p := pipeline.New()
	if err := p.Register(proj); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := p.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if _, err := p.Publish(uuid.New(), nil, events.NodeCreated{NodeID: uuid.New(), Kind: "page"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitHandled(t, proj)
}

func TestPublishRejectsInvalidEventBeforeDelivery(t *testing.T) {
	tr := inmemory.NewTransport()
	proj := newIndexProjection()

	p := pipeline.New(pipeline.WithTransport(tr))
	if err := p.Register(proj); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := p.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	_, err := p.Publish(uuid.New(), nil, events.NodeCreated{NodeID: uuid.Nil, Kind: "post"})
	if !errors.Is(err, serr.ErrInvalidEvent) {
		t.Fatalf("err = %v, want ErrInvalidEvent", err)
	}

	select {
	case <-proj.handled:
		t.Fatal("invalid event must not reach handlers")
	case <-time.After(50 * time.Millisecond):
	}

	if len(tr.Snapshot()) != 0 {
		t.Fatal("invalid event must not reach the transport")
	}
}

func TestStartLifecycle(t *testing.T) {
	p := pipeline.New()

	if err := p.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := p.Start(t.Context()); !errors.Is(err, serr.ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	p.Stop()

	if err := p.Start(t.Context()); !errors.Is(err, serr.ErrAlreadyStopped) {
		t.Fatalf("Start after Stop err = %v, want ErrAlreadyStopped", err)
	}
}

func TestRegisterAfterStartFails(t *testing.T) {
	p := pipeline.New()

	if err := p.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if err := p.Register(newIndexProjection()); !errors.Is(err, serr.ErrAlreadyRunning) {
		t.Fatalf("Register err = %v, want ErrAlreadyRunning", err)
	}
}

func TestStopClosesBusAndIsIdempotent(t *testing.T) {
	proj := newIndexProjection()

	p := pipeline.New()
	if err := p.Register(proj); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := p.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p.Stop()
	p.Stop()

	if _, err := p.Publish(uuid.New(), nil, events.NodeCreated{NodeID: uuid.New(), Kind: "post"}); !errors.Is(err, serr.ErrBusClosed) {
		t.Fatalf("publish after stop err = %v, want ErrBusClosed", err)
	}

	select {
	case <-proj.handled:
		t.Fatal("no handler invocation may happen after Stop returns")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	p := pipeline.New()
	p.Stop()

	if err := p.Start(t.Context()); !errors.Is(err, serr.ErrAlreadyStopped) {
		t.Fatalf("Start err = %v, want ErrAlreadyStopped", err)
	}
}
