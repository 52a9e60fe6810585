package broker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStreams(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stream with a consumer group", t, func() {
		mr, client := setupTestRedis(t)
		pub := broker.NewRedisPublisher(client, broker.WithMaxLen(1000))
		c, err := broker.NewRedisConsumer(ctx, client, "match_events", "fantasy_ai_group", "w1")
		So(err, ShouldBeNil)

		Convey("Creating the group again is not an error", func() {
			So(broker.EnsureGroup(ctx, client, "match_events", "fantasy_ai_group"), ShouldBeNil)
		})

		Convey("Published records are read once and acked", func() {
			So(pub.Publish(ctx, "match_events", []byte(`{"match_id":"m1"}`)), ShouldBeNil)

			msg, err := c.Poll(ctx, 20*time.Millisecond)
			So(err, ShouldBeNil)
			So(msg.Stream, ShouldEqual, "match_events")
			So(string(msg.Body), ShouldEqual, `{"match_id":"m1"}`)
			So(msg.Key(), ShouldEqual, "match_events/"+msg.ID)

			_, err = c.Poll(ctx, 20*time.Millisecond)
			So(errors.Is(err, broker.ErrNoMessage), ShouldBeTrue)

			So(c.Ack(ctx, msg), ShouldBeNil)
			pending, err := client.XPending(ctx, "match_events", "fantasy_ai_group").Result()
			So(err, ShouldBeNil)
			So(pending.Count, ShouldEqual, 0)
		})

		Convey("An empty stream times out with ErrNoMessage", func() {
			_, err := c.Poll(ctx, 10*time.Millisecond)
			So(errors.Is(err, broker.ErrNoMessage), ShouldBeTrue)
		})

		Convey("Unacked entries of a dead member are claimed by another", func() {
			So(pub.Publish(ctx, "match_events", []byte("orphan")), ShouldBeNil)
			first, err := c.Poll(ctx, 20*time.Millisecond)
			So(err, ShouldBeNil)

			other, err := broker.NewRedisConsumer(ctx, client, "match_events", "fantasy_ai_group", "w2",
				broker.WithClaimIdle(time.Millisecond), broker.WithClaimEvery(time.Millisecond))
			So(err, ShouldBeNil)
			time.Sleep(10 * time.Millisecond)

			claimed, err := other.Poll(ctx, 10*time.Millisecond)
			So(err, ShouldBeNil)
			So(claimed.ID, ShouldEqual, first.ID)
			So(string(claimed.Body), ShouldEqual, "orphan")
			So(other.Ack(ctx, claimed), ShouldBeNil)
		})

		Convey("Streams exist before anything is published", func() {
			So(mr.Exists("match_events"), ShouldBeTrue)
		})
	})
}
