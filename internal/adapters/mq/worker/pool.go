package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/domain/dedupe"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
)

// ConsumerFactory opens the consumer of kind for the named worker.
type ConsumerFactory func(ctx context.Context, kind normalize.Kind, workerName string) (broker.Consumer, error)

// Pool manages multiple workers sharing one dedupe window.
type Pool struct {
	size        int
	factory     ConsumerFactory
	handler     Handler
	dedupe      dedupe.Deduper
	pollTimeout time.Duration
	workers     []*StreamWorker
	processed   atomic.Int64

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of size workers. Each worker gets its own match and
// player consumers from factory.
func NewPool(size int, factory ConsumerFactory, handler Handler, opts ...PoolOption) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		size:        size,
		factory:     factory,
		handler:     handler,
		pollTimeout: defaultPollTimeout,
		shutdown:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dedupe == nil {
		p.dedupe = dedupe.NewInMemoryDeduper()
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	return p
}

// Start opens the consumers and starts all workers.
func (p *Pool) Start(ctx context.Context) error {
	for i := 0; i < p.size; i++ {
		name := "worker-" + strconv.Itoa(i)
		var sources []Source
		for _, kind := range []normalize.Kind{normalize.MatchKind, normalize.PlayerKind} {
			c, err := p.factory(ctx, kind, name)
			if err != nil {
				for _, s := range sources {
					_ = s.Consumer.Close()
				}
				p.stopStarted(ctx)
				return fmt.Errorf("open %s consumer for %s: %w", kind, name, err)
			}
			sources = append(sources, Source{Kind: kind, Consumer: c})
		}
		w := NewStreamWorker(sources, p.handler,
			WithName(name),
			WithDeduper(p.dedupe),
			WithPollTimeout(p.pollTimeout),
			withCounter(&p.processed),
		)
		p.workers = append(p.workers, w)
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	go p.reportThroughput(ctx)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	return nil
}

func (p *Pool) stopStarted(ctx context.Context) {
	for _, w := range p.workers {
		_ = w.Shutdown(ctx)
	}
	p.workers = nil
}

// reportThroughput logs and exports the processed count every interval.
func (p *Pool) reportThroughput(ctx context.Context) {
	ticker := time.NewTicker(throughputInterval)
	defer ticker.Stop()

	last := p.processed.Load()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			cur := p.processed.Load()
			if secs := now.Sub(lastAt).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(cur-last) / secs)
			}
			p.logger.Info(ctx, "throughput", logger.Int64("processed_events", cur))
			last, lastAt = cur, now
		}
	}
}

// Processed returns how many messages the pool handled.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Size returns the number of running workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown stops polling, waits for in-flight messages and closes the consumers.
func (p *Pool) Shutdown(ctx context.Context) error {
	select {
	case <-p.shutdown:
		return nil
	default:
		close(p.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		wctx, wcancel := context.WithTimeout(shutdownCtx, workerShutdownTimeout)
		if err := w.Shutdown(wctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		wcancel()
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
