// Package nats provides the JetStream streaming backend. One stream captures
// both topics through wildcard subjects; the partition index rides in the
// subject's last token so per-tenant ordering is preserved by subject.
package nats

import (
	"context"
	"errors"
	"fmt"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// Client is the minimal JetStream surface the backend needs. *JetStreamClient
// implements it over nats.go; tests can provide fakes.
type Client interface {
	EnsureStream(ctx context.Context, name string, subjects []string, replicas int) error
	Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error
	Close()
}

// Backend implements event.Backend on a JetStream-enabled NATS server.
type Backend struct {
	cfg    Config
	client Client
	top    event.Topology
	ready  bool
}

var _ event.Backend = (*Backend)(nil)

// New creates a backend that dials cfg.URL on Connect.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// NewWithClient creates a backend over an already connected client, which
// Connect then leaves untouched.
func NewWithClient(client Client) *Backend {
	return &Backend{client: client}
}

// Connect dials the server unless a client was injected.
func (b *Backend) Connect(ctx context.Context) error {
	if b.client != nil {
		return nil
	}

	client, err := Dial(ctx, b.cfg)
	if err != nil {
		return err
	}

	b.client = client

	return nil
}

// EnsureTopology creates or updates one stream capturing every topic's
// partition subjects.
func (b *Backend) EnsureTopology(ctx context.Context, top event.Topology) error {
	topics := top.Topics()

	subjects := make([]string, 0, len(topics))
	for _, spec := range topics {
		subjects = append(subjects, top.Stream+"."+spec.Name+".*")
	}

	if err := b.client.EnsureStream(ctx, top.Stream, subjects, int(top.ReplicationFactor)); err != nil {
		return fmt.Errorf("nats stream %s: %w", top.Stream, err)
	}

	b.top = top
	b.ready = true

	return nil
}

// Publish sends rec to its partition subject and waits for the JetStream
// acknowledgement.
func (b *Backend) Publish(ctx context.Context, rec event.Record) error {
	if !b.ready {
		return fmt.Errorf("nats publish: topology not provisioned: %w", serr.ErrPublishFailed)
	}

	subject := Subject(b.top.Stream, rec.Topic, rec.Partition)

	err := b.client.Publish(ctx, subject, rec.Value, rec.Headers)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats publish %s: %w", subject, errors.Join(serr.ErrPublishFailed, err))
	}

	return nil
}

// Shutdown drains and closes the connection.
func (b *Backend) Shutdown(context.Context) error {
	if b.client != nil {
		b.client.Close()
	}

	return nil
}

// Subject resolves a record placement to its JetStream subject.
func Subject(stream, topic string, partition int32) string {
	return fmt.Sprintf("%s.%s.%d", stream, topic, partition)
}
