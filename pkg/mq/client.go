// Package mq is a RabbitMQ client bound to a single queue. It keeps a
// publisher-confirm channel alive across connection and channel failures.
package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"dewpoint.dev/monitor/pkg/metrics"
)

const (
	reconnectDelay = 5 * time.Second
	reInitDelay    = 2 * time.Second

	initialBackoff    = 100 * time.Millisecond
	maxBackoff        = 10 * time.Second
	backoffMultiplier = 2
	maxPublishRetries = 5
)

var (
	ErrNotConnected     = errors.New("not connected to a server")
	ErrClosed           = errors.New("client is closed")
	ErrRetriesExhausted = errors.New("maximum publish attempts exceeded")
	errPublishNotAcked  = errors.New("publish was not acknowledged")
	errMissingURL       = errors.New("broker URL cannot be empty")
	errMissingQueue     = errors.New("queue name cannot be empty")
	errMissingLogger    = errors.New("logger cannot be nil")
)

// Config configures a Client.
type Config struct {
	URL    string
	Queue  string
	Logger *slog.Logger

	// Durable declares the queue as durable.
	Durable bool

	// Metrics is optional.
	Metrics *metrics.MQMetrics
}

// Message is a single publish.
type Message struct {
	// Type is copied to the AMQP type property.
	Type        string
	ContentType string
	Body        []byte
}

// Client publishes to and consumes from one queue.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	ready      bool
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error

	// publishes are serialized so confirmations map to their message
	publishMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// New validates cfg and starts connecting in the background.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errMissingURL
	}
	if cfg.Queue == "" {
		return nil, errMissingQueue
	}
	if cfg.Logger == nil {
		return nil, errMissingLogger
	}

	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "mq", "queue", cfg.Queue),
		done:   make(chan struct{}),
	}
	go c.maintain()
	return c, nil
}

// Queue returns the queue name the client is bound to.
func (c *Client) Queue() string {
	return c.cfg.Queue
}

// Ready reports whether a channel is currently usable.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Client) setReady(ready bool) {
	c.mu.Lock()
	c.ready = ready
	c.mu.Unlock()

	if c.cfg.Metrics != nil {
		if ready {
			c.cfg.Metrics.Connected.Set(1)
		} else {
			c.cfg.Metrics.Connected.Set(0)
		}
	}
}

// maintain dials until a connection is up and re-dials whenever it drops.
func (c *Client) maintain() {
	for {
		c.setReady(false)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.ReconnectAttempts.Inc()
		}

		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.logger.Warn("failed to connect, retrying", "error", err, "delay", reconnectDelay)
			select {
			case <-c.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		select {
		case <-c.done:
			_ = conn.Close()
			return
		default:
		}

		c.mu.Lock()
		c.conn = conn
		c.connClosed = conn.NotifyClose(make(chan *amqp.Error, 1))
		c.mu.Unlock()
		c.logger.Info("connected to broker")

		if stop := c.serve(conn); stop {
			return
		}
	}
}

// serve keeps a channel open on conn. It returns true once the client is closed
// and false when the connection was lost.
func (c *Client) serve(conn *amqp.Connection) bool {
	for {
		c.setReady(false)

		if err := c.openChannel(conn); err != nil {
			c.logger.Warn("failed to open channel, retrying", "error", err, "delay", reInitDelay)
			select {
			case <-c.done:
				return true
			case <-c.connClosed:
				c.logger.Info("connection closed, reconnecting")
				return false
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-c.done:
			return true
		case <-c.connClosed:
			c.logger.Info("connection closed, reconnecting")
			return false
		case <-c.chanClosed:
			c.logger.Info("channel closed, reopening")
		}
	}
}

func (c *Client) openChannel(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}

	if _, err := ch.QueueDeclare(c.cfg.Queue, c.cfg.Durable, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	c.mu.Lock()
	c.ch = ch
	c.chanClosed = ch.NotifyClose(make(chan *amqp.Error, 1))
	c.mu.Unlock()

	c.setReady(true)
	c.logger.Debug("channel ready")
	return nil
}

// Publish sends msg and waits for the broker confirmation. While disconnected,
// or when a publish is rejected, it retries with exponential backoff and gives
// up with ErrRetriesExhausted after maxPublishRetries attempts.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if c.cfg.Metrics != nil {
		timer := prometheus.NewTimer(c.cfg.Metrics.PublishDuration.WithLabelValues(c.cfg.Queue))
		defer timer.ObserveDuration()
	}

	backoff := initialBackoff
	for attempt := 0; attempt < maxPublishRetries; attempt++ {
		err := c.publishOnce(ctx, msg)
		if err == nil {
			if c.cfg.Metrics != nil {
				c.cfg.Metrics.Published.WithLabelValues(c.cfg.Queue).Inc()
			}
			return nil
		}
		if errors.Is(err, ErrClosed) || ctx.Err() != nil {
			c.recordFailure("aborted")
			return err
		}

		if attempt == maxPublishRetries-1 {
			break
		}
		c.logger.Debug("publish failed, backing off", "error", err, "attempt", attempt+1, "backoff", backoff)

		select {
		case <-ctx.Done():
			c.recordFailure("aborted")
			return ctx.Err()
		case <-c.done:
			c.recordFailure("aborted")
			return ErrClosed
		case <-time.After(backoff):
		}
		backoff = min(backoff*backoffMultiplier, maxBackoff)
	}

	c.recordFailure("retries_exhausted")
	return ErrRetriesExhausted
}

func (c *Client) publishOnce(ctx context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	ch, ready := c.ch, c.ready
	c.mu.Unlock()
	if !ready {
		return ErrNotConnected
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", c.cfg.Queue, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		Type:         msg.Type,
		Timestamp:    time.Now().UTC(),
		DeliveryMode: amqp.Transient,
		Body:         msg.Body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirmation: %w", err)
	}
	if !acked {
		return errPublishNotAcked
	}
	return nil
}

func (c *Client) recordFailure(reason string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.PublishFailures.WithLabelValues(c.cfg.Queue, reason).Inc()
	}
}

// Consume starts a consumer on the current channel. Deliveries must be acked.
// The returned channel is closed when the underlying AMQP channel goes away;
// callers call Consume again once Ready reports true.
func (c *Client) Consume() (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	ch, ready := c.ch, c.ready
	c.mu.Unlock()
	if !ready {
		return nil, ErrNotConnected
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// Close stops reconnecting and closes the channel and connection.
// Calling Close more than once returns ErrClosed.
func (c *Client) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		ch, conn := c.ch, c.conn
		c.ch, c.conn = nil, nil
		c.mu.Unlock()
		c.setReady(false)

		var closeErr error
		if ch != nil && !ch.IsClosed() {
			if e := ch.Close(); e != nil {
				closeErr = fmt.Errorf("close channel: %w", e)
			}
		}
		if conn != nil && !conn.IsClosed() {
			if e := conn.Close(); e != nil {
				if closeErr != nil {
					closeErr = fmt.Errorf("%w; close connection: %w", closeErr, e)
				} else {
					closeErr = fmt.Errorf("close connection: %w", e)
				}
			}
		}
		err = closeErr
	})
	return err
}
