package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/config"
	"github.com/okian/matchpulse/internal/simulator"
	"github.com/okian/matchpulse/pkg/logger"
)

func main() {
	var (
		mode        = flag.String("mode", "broker", "broker or http")
		baseURL     = flag.String("url", "http://localhost:8000", "Base URL of the service in http mode")
		matches     = flag.Int("matches", simulator.DefaultMatches, "Concurrent matches to simulate")
		eps         = flag.Float64("eps", simulator.DefaultEPS, "Events per second (approx)")
		minuteEvery = flag.Duration("minute", simulator.DefaultMinuteEvery, "Wall-clock length of one match minute")
		maxEvents   = flag.Int("events", 0, "Stop after this many events; 0 runs until interrupted")
		seed        = flag.Uint64("seed", 0, "Random seed; 0 picks one from the clock")
		outputFile  = flag.String("output", "", "JSON-lines copy of every sent record")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Log every event")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	if err := simulator.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink simulator.Sink
	switch *mode {
	case "http":
		s := simulator.NewHTTPSink(*baseURL, simulator.DefaultHTTPTimeout)
		if err := s.Check(ctx); err != nil {
			log.Fatal(ctx, "service health check failed", logger.Error(err))
		}
		sink = s
	case "broker":
		cfg, err := config.Load(ctx)
		if err != nil {
			log.Fatal(ctx, "failed to load config", logger.Error(err))
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: cfg.BrokerAddrs})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal(ctx, "broker unreachable", logger.Error(err))
		}
		sink = simulator.NewBrokerSink(broker.NewRedisPublisher(client), cfg.TopicMatchEvents, cfg.TopicPlayerEvents)
	default:
		log.Fatal(ctx, "unknown mode", logger.String("mode", *mode))
	}

	run := &simulator.Config{
		Matches:     *matches,
		EPS:         *eps,
		MinuteEvery: *minuteEvery,
		MaxEvents:   *maxEvents,
		Seed:        *seed,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}
	gen := simulator.NewGenerator(run.Matches, run.Seed, nil)
	if _, err := simulator.Run(ctx, run, gen, sink); err != nil {
		log.Fatal(ctx, "simulation failed", logger.Error(err))
	}
}
