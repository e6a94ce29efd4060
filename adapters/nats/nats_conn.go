package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
)

// Config carries the NATS connection settings.
type Config struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int
}

// JetStreamClient implements Client over a NATS connection with JetStream.
type JetStreamClient struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ Client = (*JetStreamClient)(nil)

// Dial connects to the server and opens the JetStream context, failing fast
// when the server is unreachable.
func Dial(_ context.Context, cfg Config) (*JetStreamClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats: url required: %w", serr.ErrInvalidConfig)
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", errors.Join(serr.ErrConnectFailed, err))
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("jetstream init: %w", errors.Join(serr.ErrConnectFailed, err))
	}

	return &JetStreamClient{nc: nc, js: js}, nil
}

// EnsureStream creates the stream or updates it to the given subject set.
func (c *JetStreamClient) EnsureStream(ctx context.Context, name string, subjects []string, replicas int) error {
	if replicas < 1 {
		replicas = 1
	}

	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Replicas:  replicas,
		Retention: jetstream.LimitsPolicy,
	})

	return err
}

// Publish sends one message and waits for the stream acknowledgement.
func (c *JetStreamClient) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data}
	if len(headers) > 0 {
		msg.Header = nats.Header{}
		for k, v := range headers {
			msg.Header.Set(k, v)
		}
	}

	_, err := c.js.PublishMsg(ctx, msg)

	return err
}

// Close drains pending messages and closes the connection.
func (c *JetStreamClient) Close() {
	if c.nc != nil && !c.nc.IsClosed() {
		_ = c.nc.Drain() //nolint:errcheck // best-effort shutdown; cannot return error here
		c.nc.Close()
	}
}
