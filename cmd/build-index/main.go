package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/matchpulse/internal/adapters/postgres"
	"github.com/okian/matchpulse/internal/config"
	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/internal/simulator"
	"github.com/okian/matchpulse/pkg/logger"
)

func main() {
	var (
		docs = flag.Int("docs", simulator.DefaultHistoricalDocs, "Number of historical summaries to generate")
		seed = flag.Uint64("seed", 0, "Random seed; 0 picks one from the clock")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal(ctx, "failed to connect", logger.Error(err))
	}
	defer pool.Close()

	n, err := build(ctx, postgres.New(pool), embedding.NewHashingEmbedder(cfg.EmbedDim), *docs, *seed)
	if err != nil {
		log.Error(ctx, "index build failed", logger.Error(err))
		return
	}
	log.Info(ctx, "index build finished", logger.Int("inserted", n))
}

type docStore interface {
	Migrate(ctx context.Context) error
	CountDocs(ctx context.Context) (int64, error)
	InsertDocs(ctx context.Context, docs []embedding.Doc) error
}

// build seeds an empty retrieval store with embedded synthetic summaries.
// A store that already holds documents is left untouched.
func build(ctx context.Context, store docStore, embedder embedding.Embedder, n int, seed uint64) (int, error) {
	log := logger.Get()
	if err := store.Migrate(ctx); err != nil {
		return 0, err
	}
	existing, err := store.CountDocs(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		log.Info(ctx, "retrieval store already populated; skipping", logger.Int64("documents", existing))
		return 0, nil
	}

	docs := simulator.HistoricalDocs(n, seed, time.Now())
	for i := range docs {
		v, err := embedder.Embed(ctx, docs[i].Text)
		if err != nil {
			return 0, err
		}
		docs[i].Vector = v
	}
	if err := store.InsertDocs(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
