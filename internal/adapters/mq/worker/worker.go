// Package worker runs the stream consumers that feed events to the prediction pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/domain/dedupe"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultPollTimeout    = 50 * time.Millisecond
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
	throughputInterval    = 2 * time.Second
	errorBackoff          = 100 * time.Millisecond
)

// ErrRedeliver marks a handling failure that left live state untouched. The
// message is neither acked nor remembered, so the broker delivers it again.
var ErrRedeliver = errors.New("redeliver message")

// Handler processes one raw record of the given kind.
type Handler interface {
	Handle(ctx context.Context, kind normalize.Kind, raw []byte) error
}

// Source is one stream a worker polls.
type Source struct {
	Kind     normalize.Kind
	Consumer broker.Consumer
}

// Worker is a long-running stream consumer.
type Worker interface {
	// Run polls until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops polling and waits for the in-flight message.
	Shutdown(ctx context.Context) error
}

// StreamWorker alternates short polls between its sources and handles each
// message synchronously.
type StreamWorker struct {
	sources     []Source
	handler     Handler
	dedupe      dedupe.Deduper
	name        string
	pollTimeout time.Duration
	processed   *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewStreamWorker creates a worker over sources.
func NewStreamWorker(sources []Source, handler Handler, opts ...Option) *StreamWorker {
	w := &StreamWorker{
		sources:     sources,
		handler:     handler,
		name:        "worker",
		pollTimeout: defaultPollTimeout,
		processed:   new(atomic.Int64),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dedupe == nil {
		w.dedupe = dedupe.NewInMemoryDeduper()
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *StreamWorker) Run(ctx context.Context) {
	defer close(w.done)
	defer w.closeSources(ctx)

	for {
		for _, src := range w.sources {
			select {
			case <-ctx.Done():
				return
			case <-w.shutdown:
				return
			default:
			}

			msg, err := src.Consumer.Poll(ctx, w.pollTimeout)
			switch {
			case errors.Is(err, broker.ErrNoMessage):
				continue
			case errors.Is(err, broker.ErrClosed), ctx.Err() != nil:
				return
			case err != nil:
				w.logger.Warn(ctx, "poll failed", logger.String("kind", string(src.Kind)), logger.Error(err))
				w.sleep(ctx, errorBackoff)
				continue
			}

			// In-flight handling finishes even when shutdown starts mid-message.
			w.process(context.WithoutCancel(ctx), src, msg)
		}
	}
}

// process handles msg and acks it unless the handler asked for redelivery.
func (w *StreamWorker) process(ctx context.Context, src Source, msg broker.Message) {
	kind := string(src.Kind)
	metrics.RecordEventConsumed(kind)

	key := msg.Key()
	if w.dedupe.SeenAndRecord(ctx, key) {
		metrics.RecordEventDuplicate()
		w.logger.Debug(ctx, "duplicate message skipped", logger.String("id", key))
		w.ack(ctx, src, msg)
		return
	}

	err := w.handler.Handle(ctx, src.Kind, msg.Body)
	if errors.Is(err, ErrRedeliver) {
		w.dedupe.Unrecord(ctx, key)
		w.logger.Warn(ctx, "message left for redelivery", logger.String("id", key), logger.Error(err))
		return
	}
	if err != nil {
		w.logger.Error(ctx, "error processing message", logger.String("id", key), logger.Error(err))
	}
	w.processed.Add(1)
	w.ack(ctx, src, msg)
}

func (w *StreamWorker) ack(ctx context.Context, src Source, msg broker.Message) {
	if err := src.Consumer.Ack(ctx, msg); err != nil {
		w.logger.Warn(ctx, "ack failed", logger.String("id", msg.Key()), logger.Error(err))
	}
}

func (w *StreamWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-w.shutdown:
	}
}

func (w *StreamWorker) closeSources(ctx context.Context) {
	for _, src := range w.sources {
		if err := src.Consumer.Close(); err != nil {
			w.logger.Warn(ctx, "error closing consumer", logger.String("kind", string(src.Kind)), logger.Error(err))
		}
	}
}

// Processed returns how many messages this worker handled.
func (w *StreamWorker) Processed() int64 { return w.processed.Load() }

// Shutdown gracefully stops the worker.
func (w *StreamWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
