package backend

import (
	"context"
	"log/slog"
	"time"

	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/mq"
)

const (
	publishQueueSize = 64
	publishTimeout   = 5 * time.Second
)

// Notifier receives state changes worth broadcasting.
type Notifier interface {
	Notify(ev events.Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(events.Event) {}

// Publisher forwards events to the message queue from a background worker so
// that request handlers never wait on the broker.
type Publisher struct {
	client  mq.ClientInterface
	logger  *slog.Logger
	metrics *metrics.BackendMetrics
	queue   chan events.Event
}

// NewPublisher creates a Publisher. m may be nil.
func NewPublisher(client mq.ClientInterface, logger *slog.Logger, m *metrics.BackendMetrics) *Publisher {
	return &Publisher{
		client:  client,
		logger:  logger.With("component", "publisher"),
		metrics: m,
		queue:   make(chan events.Event, publishQueueSize),
	}
}

// Notify queues ev. The event is dropped when the queue is full.
func (p *Publisher) Notify(ev events.Event) {
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("event queue full, dropping event", "type", ev.Type)
		p.record(ev.Type, "dropped")
	}
}

// Run publishes queued events until ctx is canceled.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("event publisher started")
	defer p.logger.Info("event publisher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.publish(ctx, ev)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev events.Event) {
	msg, err := ev.Message()
	if err != nil {
		p.logger.Error("failed to encode event", "type", ev.Type, "error", err)
		p.record(ev.Type, "invalid")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.client.Publish(pubCtx, msg); err != nil {
		p.logger.Warn("failed to publish event", "type", ev.Type, "error", err)
		p.record(ev.Type, "error")
		return
	}

	p.logger.Debug("event published", "type", ev.Type)
	p.record(ev.Type, "success")
}

func (p *Publisher) record(t events.Type, status string) {
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(string(t), status).Inc()
	}
}
