package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClientInterface is the subset of Client used by publishers and subscribers.
type ClientInterface interface {
	// Publish sends msg and blocks until the broker confirms it.
	Publish(ctx context.Context, msg Message) error

	// Consume returns deliveries from the queue. Each delivery must be acked or nacked.
	Consume() (<-chan amqp.Delivery, error)

	// Ready reports whether the client currently holds an open channel.
	Ready() bool

	Close() error
}

var _ ClientInterface = (*Client)(nil)
