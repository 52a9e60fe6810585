package simulator

import (
	"context"
	"fmt"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/domain/normalize"
)

// Sink delivers one serialized record.
type Sink interface {
	Send(ctx context.Context, kind normalize.Kind, body []byte) error
}

// BrokerSink publishes records straight to the event streams.
type BrokerSink struct {
	pub         broker.Publisher
	matchTopic  string
	playerTopic string
}

// NewBrokerSink creates a sink writing match and player records to their topics.
func NewBrokerSink(pub broker.Publisher, matchTopic, playerTopic string) *BrokerSink {
	return &BrokerSink{pub: pub, matchTopic: matchTopic, playerTopic: playerTopic}
}

// Send publishes body to the topic of kind.
func (s *BrokerSink) Send(ctx context.Context, kind normalize.Kind, body []byte) error {
	switch kind {
	case normalize.MatchKind:
		return s.pub.Publish(ctx, s.matchTopic, body)
	case normalize.PlayerKind:
		return s.pub.Publish(ctx, s.playerTopic, body)
	default:
		return fmt.Errorf("%w: %q", normalize.ErrUnknownKind, kind)
	}
}
