package frontend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/mq"
)

const resubscribeDelay = time.Second

// EventSink receives decoded live events.
type EventSink interface {
	Apply(ev events.Event) error
}

// Subscriber feeds backend events from the message queue into a sink.
type Subscriber struct {
	client mq.ClientInterface
	sink   EventSink
	logger *slog.Logger
	delay  time.Duration
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(client mq.ClientInterface, sink EventSink, logger *slog.Logger) (*Subscriber, error) {
	if client == nil {
		return nil, errors.New("mq client cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("event sink cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Subscriber{
		client: client,
		sink:   sink,
		logger: logger.With("component", "subscriber"),
		delay:  resubscribeDelay,
	}, nil
}

// Run consumes events until ctx is canceled, subscribing again whenever the
// delivery channel closes.
func (s *Subscriber) Run(ctx context.Context) {
	s.logger.Info("event subscriber started")
	defer s.logger.Info("event subscriber stopped")

	for {
		deliveries, err := s.subscribe(ctx)
		if err != nil {
			return
		}
		if !s.drain(ctx, deliveries) {
			return
		}
		s.logger.Warn("delivery channel closed, resubscribing")
	}
}

// subscribe waits until the client is ready and starts a consumer.
// It only fails when ctx is canceled.
func (s *Subscriber) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	for {
		if s.client.Ready() {
			deliveries, err := s.client.Consume()
			if err == nil {
				return deliveries, nil
			}
			s.logger.Debug("failed to start consumer", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
}

// drain handles deliveries until the channel closes (true) or ctx is canceled (false).
func (s *Subscriber) drain(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-deliveries:
			if !ok {
				return true
			}
			s.handle(d)
		}
	}
}

func (s *Subscriber) handle(d amqp.Delivery) {
	ev, err := events.Decode(d.Body)
	if err == nil {
		err = s.sink.Apply(ev)
	}
	if err != nil {
		s.logger.Warn("discarding event", "error", err, "type", d.Type)
		if nackErr := d.Nack(false, false); nackErr != nil {
			s.logger.Error("failed to nack delivery", "error", nackErr)
		}
		return
	}

	s.logger.Debug("event applied", "type", ev.Type)
	if ackErr := d.Ack(false); ackErr != nil {
		s.logger.Error("failed to ack delivery", "error", ackErr)
	}
}
