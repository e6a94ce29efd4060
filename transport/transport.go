package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/next-trace/scg-event-stream/adapters/embedded"
	"github.com/next-trace/scg-event-stream/adapters/kafka"
	"github.com/next-trace/scg-event-stream/adapters/nats"
	"github.com/next-trace/scg-event-stream/adapters/rabbitmq"
	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
	"github.com/next-trace/scg-event-stream/contract/metrics"
)

// StreamTransport publishes envelopes to a streaming backend.
type StreamTransport struct {
	backend event.Backend
	top     event.Topology
	level   event.ReliabilityLevel
	logger  *slog.Logger
	sink    metrics.Sink
}

var _ event.Transport = (*StreamTransport)(nil)

// Option configures a StreamTransport.
type Option func(*StreamTransport)

// WithLogger replaces slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *StreamTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSink wires a metrics sink.
func WithSink(sink metrics.Sink) Option {
	return func(t *StreamTransport) {
		if sink != nil {
			t.sink = sink
		}
	}
}

// New builds the backend named by cfg and runs the construction sequence:
// connect, provision topology, ready.
func New(ctx context.Context, cfg Config, opts ...Option) (*StreamTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := build(cfg, opts...)

	backend, level, err := backendFor(cfg, t.logger)
	if err != nil {
		return nil, err
	}

	t.backend = backend
	t.level = level

	if err := t.connect(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// NewWithBackend runs the construction sequence over an injected backend,
// reporting the given reliability level.
func NewWithBackend(
	ctx context.Context,
	cfg Config,
	backend event.Backend,
	level event.ReliabilityLevel,
	opts ...Option,
) (*StreamTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if backend == nil {
		return nil, fmt.Errorf("transport: backend required: %w", serr.ErrInvalidConfig)
	}

	t := build(cfg, opts...)
	t.backend = backend
	t.level = level

	if err := t.connect(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// Publish routes, partitions, and serializes env, then hands the record to
// the backend. The context bounds the backend call.
func (t *StreamTransport) Publish(ctx context.Context, env *event.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport serialize %s: %w",
			env.Event.EventType(), errors.Join(serr.ErrSerializationFailed, err))
	}

	topic := TopicFor(env)
	key := PartitionKey(env)

	partitions := t.top.DomainPartitions
	if topic == event.TopicSystem {
		partitions = 1
	}

	rec := event.Record{
		Topic:     topic,
		Partition: PartitionFor(key, partitions),
		Key:       []byte(key),
		Value:     body,
		Headers: map[string]string{
			"event_id":   env.ID.String(),
			"event_type": env.Event.EventType(),
			"tenant_id":  env.TenantID.String(),
		},
	}

	start := time.Now()
	err = t.backend.Publish(ctx, rec)
	t.sink.TransportPublished(topic, time.Since(start), err)

	if err != nil {
		return fmt.Errorf("transport publish %s: %w", topic, err)
	}

	return nil
}

// ReliabilityLevel reports what the backend guarantees for delivered records.
func (t *StreamTransport) ReliabilityLevel() event.ReliabilityLevel { return t.level }

// Shutdown releases the backend. The transport must not publish afterwards.
func (t *StreamTransport) Shutdown(ctx context.Context) error {
	return t.backend.Shutdown(ctx)
}

func build(cfg Config, opts ...Option) *StreamTransport {
	t := &StreamTransport{
		top:    cfg.StreamTopology(),
		logger: slog.Default(),
		sink:   metrics.Nop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// connect runs the strict construction sequence. A topology failure shuts the
// already connected backend down before surfacing.
func (t *StreamTransport) connect(ctx context.Context) error {
	if err := t.backend.Connect(ctx); err != nil {
		if !errors.Is(err, serr.ErrConnectFailed) {
			err = errors.Join(serr.ErrConnectFailed, err)
		}

		return fmt.Errorf("transport connect: %w", err)
	}

	if err := t.backend.EnsureTopology(ctx, t.top); err != nil {
		if sdErr := t.backend.Shutdown(context.WithoutCancel(ctx)); sdErr != nil {
			t.logger.Error("backend_shutdown_failed", slog.String("error", sdErr.Error()))
		}

		if !errors.Is(err, serr.ErrTopologyFailed) && !errors.Is(err, serr.ErrTopologyMismatch) {
			err = errors.Join(serr.ErrTopologyFailed, err)
		}

		return fmt.Errorf("transport topology: %w", err)
	}

	t.logger.Info("transport_ready",
		slog.String("stream", t.top.Stream),
		slog.Int("domain_partitions", int(t.top.DomainPartitions)),
		slog.String("reliability", t.level.String()),
	)

	return nil
}

// backendFor maps config onto a concrete backend and its reliability level.
// AMQP has no partition-level ordering fences, so it reports ReliabilityNone.
func backendFor(cfg Config, logger *slog.Logger) (event.Backend, event.ReliabilityLevel, error) {
	if cfg.Mode == ModeEmbedded {
		return embedded.New(cfg.Retention, logger), event.ReliabilityStreaming, nil
	}

	switch cfg.Remote.Protocol {
	case ProtocolKafka:
		b := kafka.New(kafka.Config{Brokers: cfg.brokers(), ClientID: cfg.Remote.ClientID})

		return b, event.ReliabilityStreaming, nil
	case ProtocolNATS:
		b := nats.New(nats.Config{URL: cfg.Remote.Endpoint, Name: cfg.Remote.ClientID})

		return b, event.ReliabilityStreaming, nil
	case ProtocolAMQP:
		b := rabbitmq.New(rabbitmq.Config{URL: cfg.Remote.Endpoint})

		return b, event.ReliabilityNone, nil
	default:
		return nil, 0, fmt.Errorf("transport: unknown protocol %q: %w", cfg.Remote.Protocol, serr.ErrInvalidConfig)
	}
}
