package nats_test

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-event-stream/adapters/nats"
	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

type streamCall struct {
	name     string
	subjects []string
	replicas int
}

type publishCall struct {
	subject string
	data    []byte
	headers map[string]string
}

type fakeClient struct {
	streams   []streamCall
	publishes []publishCall
	closed    bool

	streamErr  error
	publishErr error
}

func (f *fakeClient) EnsureStream(_ context.Context, name string, subjects []string, replicas int) error {
	f.streams = append(f.streams, streamCall{name: name, subjects: subjects, replicas: replicas})

	return f.streamErr
}

func (f *fakeClient) Publish(_ context.Context, subject string, data []byte, headers map[string]string) error {
	f.publishes = append(f.publishes, publishCall{subject: subject, data: data, headers: headers})

	return f.publishErr
}

func (f *fakeClient) Close() { f.closed = true }

func topology() event.Topology {
	return event.Topology{Stream: "orders", DomainPartitions: 4, ReplicationFactor: 3}
}

func TestEnsureTopologyCreatesOneStreamWithWildcardSubjects(t *testing.T) {
	fc := &fakeClient{}
	b := nats.NewWithClient(fc)

	if err := b.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := b.EnsureTopology(t.Context(), topology()); err != nil {
		t.Fatalf("EnsureTopology: %v", err)
	}

	if len(fc.streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(fc.streams))
	}

	s := fc.streams[0]

	if s.name != "orders" || s.replicas != 3 {
		t.Fatalf("stream = %+v", s)
	}

	if len(s.subjects) != 2 || s.subjects[0] != "orders.domain.*" || s.subjects[1] != "orders.system.*" {
		t.Fatalf("subjects = %v", s.subjects)
	}
}

func TestEnsureTopologyWrapsClientError(t *testing.T) {
	fc := &fakeClient{streamErr: errors.New("no jetstream")}
	b := nats.NewWithClient(fc)

	err := b.EnsureTopology(t.Context(), topology())
	if err == nil || !errors.Is(err, fc.streamErr) {
		t.Fatalf("err = %v, want wrapped stream error", err)
	}
}

func TestPublishRequiresTopology(t *testing.T) {
	b := nats.NewWithClient(&fakeClient{})

	err := b.Publish(t.Context(), event.Record{Topic: event.TopicDomain})
	if !errors.Is(err, serr.ErrPublishFailed) {
		t.Fatalf("err = %v, want ErrPublishFailed", err)
	}
}

func TestPublishSendsToPartitionSubject(t *testing.T) {
	fc := &fakeClient{}
	b := nats.NewWithClient(fc)

	if err := b.EnsureTopology(t.Context(), topology()); err != nil {
		t.Fatalf("EnsureTopology: %v", err)
	}

	rec := event.Record{
		Topic:     event.TopicSystem,
		Partition: 0,
		Key:       []byte("tenant-a"),
		Value:     []byte(`{"x":1}`),
		Headers:   map[string]string{"event_type": "module.enabled"},
	}

	if err := b.Publish(t.Context(), rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(fc.publishes) != 1 {
		t.Fatalf("publishes = %d, want 1", len(fc.publishes))
	}

	p := fc.publishes[0]

	if p.subject != "orders.system.0" {
		t.Fatalf("subject = %s, want orders.system.0", p.subject)
	}

	if string(p.data) != `{"x":1}` {
		t.Fatalf("data = %s", p.data)
	}

	if p.headers["event_type"] != "module.enabled" {
		t.Fatalf("headers = %+v", p.headers)
	}
}

func TestPublishWrapsClientError(t *testing.T) {
	fc := &fakeClient{publishErr: errors.New("timeout waiting for ack")}
	b := nats.NewWithClient(fc)

	if err := b.EnsureTopology(t.Context(), topology()); err != nil {
		t.Fatalf("EnsureTopology: %v", err)
	}

	err := b.Publish(t.Context(), event.Record{Topic: event.TopicDomain, Partition: 2})
	if !errors.Is(err, serr.ErrPublishFailed) || !errors.Is(err, fc.publishErr) {
		t.Fatalf("err = %v, want ErrPublishFailed joined with cause", err)
	}
}

func TestPublishPassesContextErrorsThrough(t *testing.T) {
	fc := &fakeClient{publishErr: context.DeadlineExceeded}
	b := nats.NewWithClient(fc)

	if err := b.EnsureTopology(t.Context(), topology()); err != nil {
		t.Fatalf("EnsureTopology: %v", err)
	}

	err := b.Publish(t.Context(), event.Record{Topic: event.TopicDomain})
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, serr.ErrPublishFailed) {
		t.Fatalf("err = %v, want bare context.DeadlineExceeded", err)
	}
}

func TestShutdownClosesClient(t *testing.T) {
	fc := &fakeClient{}
	b := nats.NewWithClient(fc)

	if err := b.Shutdown(t.Context()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if !fc.closed {
		t.Fatal("client not closed")
	}
}

func TestSubject(t *testing.T) {
	if got := nats.Subject("orders", event.TopicDomain, 7); got != "orders.domain.7" {
		t.Fatalf("Subject = %s, want orders.domain.7", got)
	}
}
