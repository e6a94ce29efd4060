package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
)

const exchangeType = "topic"

// Config carries the AMQP connection settings.
type Config struct {
	URL         string
	ConnTimeout time.Duration
}

// ReconnectingPublisher maintains one AMQP connection and channel, redialing
// with exponential backoff when the broker drops them. Exchanges declared
// through it are re-declared after every reconnect. Publishing while the
// connection is down fails immediately instead of queueing.
type ReconnectingPublisher struct {
	cfg Config

	mu        sync.RWMutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	exchanges map[string]struct{}
	closed    chan struct{}
}

var _ Publisher = (*ReconnectingPublisher)(nil)

// DialPublisher connects synchronously so a bad endpoint fails construction,
// then keeps the connection alive in the background until Close.
func DialPublisher(_ context.Context, cfg Config) (*ReconnectingPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq: url required: %w", serr.ErrInvalidConfig)
	}

	rp := &ReconnectingPublisher{
		cfg:       cfg,
		exchanges: make(map[string]struct{}),
		closed:    make(chan struct{}),
	}

	conn, ch, err := rp.dial()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", errors.Join(serr.ErrConnectFailed, err))
	}

	rp.install(conn, ch)

	go rp.run(conn)

	return rp, nil
}

// DeclareExchange declares name as a durable topic exchange and remembers it
// for re-declaration after reconnects.
func (rp *ReconnectingPublisher) DeclareExchange(_ context.Context, name string) error {
	rp.mu.Lock()
	rp.exchanges[name] = struct{}{}
	ch := rp.ch
	rp.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("rabbitmq not connected: %w", serr.ErrConnectFailed)
	}

	return declareOn(ch, name)
}

// Publish sends one persistent message.
func (rp *ReconnectingPublisher) Publish(
	ctx context.Context,
	exchange, routingKey string,
	body []byte,
	headers map[string]string,
) error {
	rp.mu.RLock()
	ch := rp.ch
	rp.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("rabbitmq not connected: %w", serr.ErrPublishFailed)
	}

	var h amqp.Table
	if len(headers) > 0 {
		h = amqp.Table{}
		for k, v := range headers {
			h[k] = v
		}
	}

	return ch.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers:      h,
			Body:         body,
		},
	)
}

// Close stops the reconnect loop and closes the connection. It is idempotent.
func (rp *ReconnectingPublisher) Close() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	select {
	case <-rp.closed:
		return
	default:
		close(rp.closed)
	}

	if rp.ch != nil {
		_ = rp.ch.Close()
		rp.ch = nil
	}

	if rp.conn != nil {
		_ = rp.conn.Close()
		rp.conn = nil
	}
}

func (rp *ReconnectingPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(rp.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-event-stream"},
		Dial:       amqp.DefaultDial(rp.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, nil, err
	}

	return conn, ch, nil
}

func (rp *ReconnectingPublisher) install(conn *amqp.Connection, ch *amqp.Channel) {
	rp.mu.Lock()
	rp.conn = conn
	rp.ch = ch
	rp.mu.Unlock()
}

func (rp *ReconnectingPublisher) teardown() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.ch != nil {
		_ = rp.ch.Close()
		rp.ch = nil
	}

	if rp.conn != nil {
		_ = rp.conn.Close()
		rp.conn = nil
	}
}

// redeclare restores every known exchange on a fresh channel.
func (rp *ReconnectingPublisher) redeclare(ch *amqp.Channel) error {
	rp.mu.RLock()

	names := make([]string, 0, len(rp.exchanges))
	for name := range rp.exchanges {
		names = append(names, name)
	}

	rp.mu.RUnlock()

	for _, name := range names {
		if err := declareOn(ch, name); err != nil {
			return err
		}
	}

	return nil
}

func declareOn(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		exchangeType,
		true,
		false,
		false,
		false,
		nil,
	)
}

// run watches the active connection and redials when the broker drops it.
func (rp *ReconnectingPublisher) run(conn *amqp.Connection) {
	backoff := time.Second

	const maxBackoff = 30 * time.Second

	// #nosec G404 -- non-crypto RNG is acceptable for backoff jitter
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // non-crypto RNG is acceptable for backoff jitter

	for {
		notify := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-rp.closed:
			rp.teardown()
			return
		case <-notify:
			rp.teardown()
		}

		for {
			select {
			case <-rp.closed:
				return
			default:
			}

			newConn, ch, err := rp.dial()
			if err == nil {
				if err = rp.redeclare(ch); err == nil {
					rp.install(newConn, ch)
					conn = newConn
					backoff = time.Second

					break
				}

				_ = ch.Close()
				_ = newConn.Close()
			}

			jitter := time.Duration(rng.Int63n(int64(backoff / 2)))

			sleep := backoff + jitter/2
			if sleep > maxBackoff {
				sleep = maxBackoff
			}

			t := time.NewTimer(sleep)
			select {
			case <-rp.closed:
				t.Stop()
				return
			case <-t.C:
			}

			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}
	}
}
