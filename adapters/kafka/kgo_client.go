package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
)

// Config carries the franz-go connection settings. Produces always require
// all-ISR acknowledgement; weaker acks would break the streaming reliability
// the backend reports.
type Config struct {
	Brokers     []string
	ClientID    string
	TLS         *tls.Config
	Compression []kgo.CompressionCodec
}

// KgoClient implements Client over franz-go. The manual partitioner keeps the
// record's Partition field authoritative so placement decided upstream is not
// re-hashed by the client.
type KgoClient struct {
	cl *kgo.Client
}

var _ Client = (*KgoClient)(nil)

// Dial connects to the brokers and pings the cluster so an unreachable
// endpoint fails construction instead of the first publish.
func Dial(ctx context.Context, cfg Config) (*KgoClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers required: %w", serr.ErrInvalidConfig)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RecordPartitioner(kgo.ManualPartitioner()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}

	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	if len(cfg.Compression) > 0 {
		opts = append(opts, kgo.ProducerBatchCompression(cfg.Compression...))
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client init: %w", errors.Join(serr.ErrConnectFailed, err))
	}

	if err := cl.Ping(ctx); err != nil {
		cl.Close()

		return nil, fmt.Errorf("kafka ping: %w", errors.Join(serr.ErrConnectFailed, err))
	}

	return &KgoClient{cl: cl}, nil
}

// CreateTopic issues a CreateTopics request, treating an already existing
// topic as success.
func (c *KgoClient) CreateTopic(ctx context.Context, topic string, partitions int32, replication int16) error {
	reqTopic := kmsg.NewCreateTopicsRequestTopic()
	reqTopic.Topic = topic
	reqTopic.NumPartitions = partitions
	reqTopic.ReplicationFactor = replication

	req := kmsg.NewPtrCreateTopicsRequest()
	req.Topics = append(req.Topics, reqTopic)

	resp, err := req.RequestWith(ctx, c.cl)
	if err != nil {
		return err
	}

	for _, t := range resp.Topics {
		if err := kerr.ErrorForCode(t.ErrorCode); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
			return err
		}
	}

	return nil
}

// Produce sends one record and waits for the acknowledgement.
func (c *KgoClient) Produce(
	ctx context.Context,
	topic string,
	partition int32,
	key, value []byte,
	headers map[string]string,
) error {
	rec := &kgo.Record{Topic: topic, Partition: partition, Key: key, Value: value}
	if len(headers) > 0 {
		rec.Headers = make([]kgo.RecordHeader, 0, len(headers))
		for k, v := range headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
	}

	return c.cl.ProduceSync(ctx, rec).FirstErr()
}

// Close flushes and closes the underlying client.
func (c *KgoClient) Close() { c.cl.Close() }
