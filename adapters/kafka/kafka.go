// Package kafka provides the Kafka streaming backend. Records are produced to
// explicit partitions so tenant ordering survives the hop, and topology is
// provisioned through the admin protocol before the first publish.
package kafka

import (
	"context"
	"errors"
	"fmt"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// Client is the minimal Kafka surface the backend needs. *KgoClient implements
// it over franz-go; tests can provide fakes.
type Client interface {
	CreateTopic(ctx context.Context, topic string, partitions int32, replication int16) error
	Produce(ctx context.Context, topic string, partition int32, key, value []byte, headers map[string]string) error
	Close()
}

// Backend implements event.Backend on a Kafka cluster. Logical topics map to
// "<stream>.<topic>" so multiple streams can share a cluster.
type Backend struct {
	cfg    Config
	client Client
	top    event.Topology
	ready  bool
}

var _ event.Backend = (*Backend)(nil)

// New creates a backend that dials cfg.Brokers on Connect.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// NewWithClient creates a backend over an already connected client, which
// Connect then leaves untouched.
func NewWithClient(client Client) *Backend {
	return &Backend{client: client}
}

// Connect dials the cluster unless a client was injected.
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

// EnsureTopology creates the stream's topics, tolerating ones that already
// exist. Partition counts of existing topics are not reconciled.
func (b *Backend) EnsureTopology(ctx context.Context, top event.Topology) error {
	for _, spec := range top.Topics() {
		name := TopicName(top.Stream, spec.Name)
		if err := b.client.CreateTopic(ctx, name, spec.Partitions, top.ReplicationFactor); err != nil {
			return fmt.Errorf("kafka topic %s: %w", name, err)
		}
	}

	b.top = top
	b.ready = true

	return nil
}

// Publish produces rec to its resolved topic and partition, waiting for the
// broker acknowledgement.
func (b *Backend) Publish(ctx context.Context, rec event.Record) error {
	if !b.ready {
		return fmt.Errorf("kafka publish: topology not provisioned: %w", serr.ErrPublishFailed)
	}

	name := TopicName(b.top.Stream, rec.Topic)

	err := b.client.Produce(ctx, name, rec.Partition, rec.Key, rec.Value, rec.Headers)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish %s[%d]: %w", name, rec.Partition, errors.Join(serr.ErrPublishFailed, err))
	}

	return nil
}

// Shutdown closes the client, flushing buffered produces.
func (b *Backend) Shutdown(context.Context) error {
	if b.client != nil {
		b.client.Close()
	}

	return nil
}

// TopicName resolves a logical topic to its physical Kafka topic.
func TopicName(stream, topic string) string {
	return stream + "." + topic
}
