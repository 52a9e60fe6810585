// Package broker moves raw event records and prediction records between
// producers and the prediction workers.
//
// Delivery is at-least-once: a consumer acknowledges a message only after
// it has been handled, so unacknowledged messages may be delivered again.
package broker

import (
	"context"
	"time"
)

// Message is one record read from a stream.
type Message struct {
	// ID is unique within Stream.
	ID     string
	Stream string
	Body   []byte
}

// Key identifies the message across streams.
func (m Message) Key() string { return m.Stream + "/" + m.ID }

// Consumer reads one stream as a member of a consumer group.
type Consumer interface {
	// Poll waits up to timeout for the next message. It returns ErrNoMessage
	// when nothing arrived in time.
	Poll(ctx context.Context, timeout time.Duration) (Message, error)

	// Ack marks msg as handled.
	Ack(ctx context.Context, msg Message) error

	Close() error
}

// Publisher appends records to topics.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}
