package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// payloadField is the stream entry field holding the record bytes.
const payloadField = "payload"

// minBlock is the shortest XREADGROUP block; BLOCK 0 would wait forever.
const minBlock = time.Millisecond

// RedisPublisher appends records to Redis streams with XADD.
type RedisPublisher struct {
	client redis.UniversalClient
	maxLen int64
}

// NewRedisPublisher creates a publisher. The client stays owned by the caller.
func NewRedisPublisher(client redis.UniversalClient, opts ...Option) *RedisPublisher {
	cfg := newSettings(opts)
	return &RedisPublisher{client: client, maxLen: cfg.maxLen}
}

// Publish appends payload to the topic stream, trimming it approximately to the max length.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{payloadField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", topic, err)
	}
	metrics.RecordBrokerPublished(topic)
	return nil
}

// Close is a no-op.
func (p *RedisPublisher) Close() error { return nil }

// EnsureGroup creates the consumer group of stream, creating the stream too
// when missing. An existing group is not an error.
func EnsureGroup(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// RedisConsumer reads one stream as a named member of a consumer group.
// Entries left pending by a crashed member are claimed once they have been
// idle for the claim interval.
type RedisConsumer struct {
	client redis.UniversalClient
	stream string
	group  string
	name   string
	cfg    settings
	log    logger.Logger

	mu         sync.Mutex
	lastClaim  time.Time
	claimStart string
}

// NewRedisConsumer joins group on stream as name, creating the group if needed.
func NewRedisConsumer(ctx context.Context, client redis.UniversalClient, stream, group, name string, opts ...Option) (*RedisConsumer, error) {
	if err := EnsureGroup(ctx, client, stream, group); err != nil {
		return nil, err
	}
	cfg := newSettings(opts)
	log := cfg.log
	if log == nil {
		log = logger.Get().Named("broker")
	}
	return &RedisConsumer{
		client:     client,
		stream:     stream,
		group:      group,
		name:       name,
		cfg:        cfg,
		log:        log,
		claimStart: "0-0",
	}, nil
}

// Poll returns a claimed idle entry when one is due, else waits up to timeout
// for a new entry.
func (c *RedisConsumer) Poll(ctx context.Context, timeout time.Duration) (Message, error) {
	if msg, ok := c.claim(ctx); ok {
		return msg, nil
	}

	if timeout < minBlock {
		timeout = minBlock
	}
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, ">"},
		Count:    1,
		Block:    timeout,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return Message{}, ErrNoMessage
	case ctx.Err() != nil:
		return Message{}, ctx.Err()
	case err != nil:
		metrics.RecordBrokerPollError(c.stream)
		return Message{}, fmt.Errorf("xreadgroup %s: %w", c.stream, err)
	}
	for _, s := range streams {
		for _, m := range s.Messages {
			return c.toMessage(m), nil
		}
	}
	return Message{}, ErrNoMessage
}

// claim takes over at most one idle pending entry, at most once per claim interval.
func (c *RedisConsumer) claim(ctx context.Context) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastClaim) < c.cfg.claimEvery {
		return Message{}, false
	}
	c.lastClaim = time.Now()

	msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.name,
		MinIdle:  c.cfg.claimIdle,
		Start:    c.claimStart,
		Count:    1,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			metrics.RecordBrokerPollError(c.stream)
			c.log.Warn(ctx, "claim of pending entries failed",
				logger.String("stream", c.stream), logger.Error(err))
		}
		return Message{}, false
	}
	c.claimStart = next
	if len(msgs) == 0 {
		return Message{}, false
	}
	// More may be pending; look again on the next poll.
	c.lastClaim = time.Time{}
	c.log.Info(ctx, "claimed idle pending entry",
		logger.String("stream", c.stream), logger.String("id", msgs[0].ID))
	return c.toMessage(msgs[0]), true
}

func (c *RedisConsumer) toMessage(m redis.XMessage) Message {
	var body []byte
	switch v := m.Values[payloadField].(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	}
	return Message{ID: m.ID, Stream: c.stream, Body: body}
}

// Ack acknowledges msg in the group.
func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack %s %s: %w", c.stream, msg.ID, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (c *RedisConsumer) Close() error { return nil }
