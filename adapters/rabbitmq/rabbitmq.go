package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// Publisher is the minimal AMQP surface the backend needs.
// *ReconnectingPublisher implements it over amqp091-go; tests can provide
// fakes.
type Publisher interface {
	DeclareExchange(ctx context.Context, name string) error
	Publish(ctx context.Context, exchange, routingKey string, body []byte, headers map[string]string) error
	Close()
}

// Backend implements event.Backend on RabbitMQ. The stream becomes a durable
// topic exchange and the partition index becomes part of the routing key, so
// placement survives the hop even though AMQP has no native partitions.
type Backend struct {
	cfg   Config
	pub   Publisher
	top   event.Topology
	ready bool
}

var _ event.Backend = (*Backend)(nil)

// New creates a backend that dials cfg.URL on Connect.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// NewWithPublisher creates a backend over an already connected publisher,
// which Connect then leaves untouched.
func NewWithPublisher(pub Publisher) *Backend {
	return &Backend{pub: pub}
}

// Connect dials the broker unless a publisher was injected.
func (b *Backend) Connect(ctx context.Context) error {
	if b.pub != nil {
		return nil
	}

	pub, err := DialPublisher(ctx, b.cfg)
	if err != nil {
		return err
	}

	b.pub = pub

	return nil
}

// EnsureTopology declares the stream's exchange. Declaration is idempotent on
// the broker side as long as the exchange attributes match.
func (b *Backend) EnsureTopology(ctx context.Context, top event.Topology) error {
	if err := b.pub.DeclareExchange(ctx, top.Stream); err != nil {
		return fmt.Errorf("rabbitmq exchange %s: %w", top.Stream, err)
	}

	b.top = top
	b.ready = true

	return nil
}

// Publish sends rec to the stream exchange under its partition routing key.
func (b *Backend) Publish(ctx context.Context, rec event.Record) error {
	if !b.ready {
		return fmt.Errorf("rabbitmq publish: topology not provisioned: %w", serr.ErrPublishFailed)
	}

	key := RoutingKey(rec.Topic, rec.Partition)

	err := b.pub.Publish(ctx, b.top.Stream, key, rec.Value, rec.Headers)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish %s %s: %w", b.top.Stream, key, errors.Join(serr.ErrPublishFailed, err))
	}

	return nil
}

// Shutdown closes the publisher and its connection.
func (b *Backend) Shutdown(context.Context) error {
	if b.pub != nil {
		b.pub.Close()
	}

	return nil
}

// RoutingKey resolves a record placement to its AMQP routing key.
func RoutingKey(topic string, partition int32) string {
	return fmt.Sprintf("%s.%d", topic, partition)
}
