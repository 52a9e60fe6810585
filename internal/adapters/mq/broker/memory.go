package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/matchpulse/pkg/metrics"
)

// Memory is an in-process broker with one bounded channel per topic.
// Acks are no-ops: a message is gone once polled.
type Memory struct {
	capacity int

	mu     sync.RWMutex
	topics map[string]chan Message
	closed bool
}

// NewMemory creates an in-memory broker.
func NewMemory(opts ...Option) *Memory {
	cfg := newSettings(opts)
	return &Memory{
		capacity: cfg.capacity,
		topics:   make(map[string]chan Message),
	}
}

// topic returns the channel of name, creating it on first use.
func (m *Memory) topic(name string) (chan Message, error) {
	m.mu.RLock()
	ch, ok := m.topics[name]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return ch, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if ch, ok = m.topics[name]; !ok {
		ch = make(chan Message, m.capacity)
		m.topics[name] = ch
	}
	return ch, nil
}

// Publish enqueues payload on topic without blocking.
func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	ch, err := m.topic(topic)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	msg := Message{ID: uuid.NewString(), Stream: topic, Body: payload}
	select {
	case ch <- msg:
		metrics.RecordBrokerPublished(topic)
		metrics.UpdateQueueSize(topic, len(ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Len returns the number of queued messages on topic.
func (m *Memory) Len(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics[topic])
}

// Consumer returns a consumer of topic. Consumers of one topic share its
// messages, which matches a single consumer group.
func (m *Memory) Consumer(topic string) (*MemoryConsumer, error) {
	ch, err := m.topic(topic)
	if err != nil {
		return nil, err
	}
	return &MemoryConsumer{topic: topic, ch: ch}, nil
}

// Close shuts every topic down. Pending messages stay readable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	for _, ch := range m.topics {
		close(ch)
	}
	m.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (m *Memory) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MemoryConsumer polls one topic of a Memory broker.
type MemoryConsumer struct {
	topic string
	ch    chan Message
}

// Poll waits up to timeout for a message.
func (c *MemoryConsumer) Poll(ctx context.Context, timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-c.ch:
		if !ok {
			return Message{}, ErrClosed
		}
		metrics.UpdateQueueSize(c.topic, len(c.ch))
		return msg, nil
	case <-timer.C:
		return Message{}, ErrNoMessage
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Ack is a no-op.
func (c *MemoryConsumer) Ack(context.Context, Message) error { return nil }

// Close is a no-op; the broker owns the channel.
func (c *MemoryConsumer) Close() error { return nil }
