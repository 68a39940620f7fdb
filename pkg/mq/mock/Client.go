// Package mock provides a test double for mq.ClientInterface.
package mock

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"dewpoint.dev/monitor/pkg/mq"
)

// MockClient records calls and returns configured results.
type MockClient struct {
	mu sync.Mutex

	// PublishFunc overrides Publish. If nil, PublishError is returned.
	PublishFunc  func(ctx context.Context, msg mq.Message) error
	PublishError error
	published    []mq.Message

	// ConsumeFunc overrides Consume. If nil, ConsumeChannel and ConsumeError are returned.
	ConsumeFunc    func() (<-chan amqp.Delivery, error)
	ConsumeChannel <-chan amqp.Delivery
	ConsumeError   error
	consumeCalls   int

	// NotReady makes Ready report false.
	NotReady bool

	CloseError error
	closeCalls int
}

// NewMockClient returns a ready MockClient with an open, empty delivery channel.
func NewMockClient() *MockClient {
	return &MockClient{
		ConsumeChannel: make(chan amqp.Delivery),
	}
}

// Publish implements mq.ClientInterface.
func (m *MockClient) Publish(ctx context.Context, msg mq.Message) error {
	m.mu.Lock()
	m.published = append(m.published, msg)
	fn, err := m.PublishFunc, m.PublishError
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, msg)
	}
	return err
}

// Consume implements mq.ClientInterface.
func (m *MockClient) Consume() (<-chan amqp.Delivery, error) {
	m.mu.Lock()
	m.consumeCalls++
	fn := m.ConsumeFunc
	ch, err := m.ConsumeChannel, m.ConsumeError
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return ch, err
}

// Ready implements mq.ClientInterface.
func (m *MockClient) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.NotReady
}

// Close implements mq.ClientInterface.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return m.CloseError
}

// Published returns a copy of all messages passed to Publish.
func (m *MockClient) Published() []mq.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mq.Message, len(m.published))
	copy(out, m.published)
	return out
}

// ConsumeCalls returns the number of Consume calls.
func (m *MockClient) ConsumeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumeCalls
}

// CloseCalls returns the number of Close calls.
func (m *MockClient) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Reset clears recorded calls.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
	m.consumeCalls = 0
	m.closeCalls = 0
}

var _ mq.ClientInterface = (*MockClient)(nil)
