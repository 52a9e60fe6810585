package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchpulse/internal/adapters/http/api"
	"github.com/okian/matchpulse/internal/adapters/http/swagger"
	"github.com/okian/matchpulse/internal/adapters/llm"
	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/adapters/mq/worker"
	"github.com/okian/matchpulse/internal/adapters/postgres"
	"github.com/okian/matchpulse/internal/adapters/repository"
	service "github.com/okian/matchpulse/internal/app"
	"github.com/okian/matchpulse/internal/config"
	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/internal/domain/explain"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/internal/domain/scoring"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal(ctx, "service failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	cache, err := repository.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer cache.Close()

	streams := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: cfg.BrokerAddrs})
	defer streams.Close()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.New(pool)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	index, err := service.LoadIndex(ctx, repo, cfg.EmbedDim)
	if err != nil {
		return err
	}
	log.Info(ctx, "retrieval index loaded", logger.Int("documents", index.Len()))

	classifier, err := newClassifier(cfg)
	if err != nil {
		return err
	}
	explainer, err := newExplainer(ctx, cfg, index)
	if err != nil {
		return err
	}

	topics := topicsFrom(cfg)
	for _, stream := range []string{topics.MatchEvents, topics.PlayerEvents} {
		if err := broker.EnsureGroup(ctx, streams, stream, cfg.ConsumerGroup); err != nil {
			return err
		}
	}

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithStateStore(repository.NewRedisStore(cache,
			repository.WithTTL(cfg.StateTTL),
			repository.WithMaxRetries(cfg.StateMaxRetries),
		)),
		service.WithPredictionCache(repository.NewRedisPredictionCache(cache, repository.WithTTL(cfg.StateTTL))),
		service.WithEventLog(repo),
		service.WithPredictionStore(repo),
		service.WithClassifier(classifier),
		service.WithExplainer(explainer),
		service.WithPublisher(broker.NewRedisPublisher(streams)),
		service.WithConsumerFactory(redisConsumers(streams, cfg, topics)),
		service.WithTopics(topics),
		service.WithEveryN(cfg.EveryN),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithPollTimeout(cfg.PollTimeout),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	return nil
}

// newMux registers the documentation and API routes.
func newMux(ctx context.Context, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, func(err error) bool {
		return errors.Is(err, service.ErrNotFound)
	}).Register(ctx, mux)
	return mux
}

func topicsFrom(cfg *config.Config) service.Topics {
	return service.Topics{
		MatchEvents:  cfg.TopicMatchEvents,
		PlayerEvents: cfg.TopicPlayerEvents,
		Predictions:  cfg.TopicPredictions,
	}
}

// redisConsumers opens one group consumer per worker and stream.
func redisConsumers(client redis.UniversalClient, cfg *config.Config, topics service.Topics) worker.ConsumerFactory {
	return func(ctx context.Context, kind normalize.Kind, workerName string) (broker.Consumer, error) {
		stream := topics.MatchEvents
		if kind == normalize.PlayerKind {
			stream = topics.PlayerEvents
		}
		c, err := broker.NewRedisConsumer(ctx, client, stream, cfg.ConsumerGroup, cfg.ConsumerName+"-"+workerName)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func newClassifier(cfg *config.Config) (*scoring.SoftmaxModel, error) {
	if cfg.ModelPath == "" {
		return scoring.DefaultSoftmaxModel(scoring.WithVersion(cfg.ModelVersion)), nil
	}
	return scoring.LoadSoftmaxModel(cfg.ModelPath, scoring.WithVersion(cfg.ModelVersion))
}

// newExplainer attaches the completion provider only when one is configured.
func newExplainer(ctx context.Context, cfg *config.Config, index *embedding.Index) (*explain.Explainer, error) {
	opts := []explain.Option{explain.WithTopK(cfg.TopK)}
	if cfg.LLMProvider == "openrouter" && cfg.LLMAPIKey != "" {
		client, err := llm.New(cfg.LLMAPIKey,
			llm.WithModel(cfg.LLMModel),
			llm.WithBaseURL(cfg.LLMBaseURL),
			llm.WithTimeout(cfg.LLMTimeout),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, explain.WithCompleter(client))
	} else {
		logger.Get().Warn(ctx, "no completion provider configured; explanations are placeholders",
			logger.String("llm_provider", cfg.LLMProvider))
	}
	return explain.New(embedding.NewHashingEmbedder(index.Dim()), index, opts...), nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
