package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

const reportInterval = time.Second

// Run sends kickoffs for every match, then random events at cfg.EPS until
// ctx is cancelled or cfg.MaxEvents records were sent. A scheduler job
// advances the match clocks every cfg.MinuteEvery.
func Run(ctx context.Context, cfg *Config, gen *Generator, sink Sink) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulator")

	out, closeOut, err := openOutput(cfg.OutputFile)
	if err != nil {
		return stats, err
	}
	defer closeOut()

	send := func(e Emitted) {
		stats.EventsGenerated++
		if err := sink.Send(ctx, e.Kind, e.Body); err != nil {
			stats.EventsFailed++
			if !errors.Is(err, context.Canceled) {
				log.Warn(ctx, "send failed", logger.String("kind", string(e.Kind)), logger.Error(err))
			}
			return
		}
		if e.Kind == normalize.MatchKind {
			stats.MatchEventsSent++
		} else {
			stats.PlayerEventsSent++
		}
		if cfg.Verbose {
			log.Debug(ctx, "sent", logger.String("kind", string(e.Kind)), logger.String("body", string(e.Body)))
		}
		if out != nil {
			_, _ = out.Write(append(e.Body, '\n'))
		}
	}

	kickoffs, err := gen.Kickoffs()
	if err != nil {
		return stats, err
	}
	for _, e := range kickoffs {
		send(e)
	}
	log.Info(ctx, "started simulator",
		logger.Int("matches", len(kickoffs)),
		logger.Float64("eps", cfg.EPS),
		logger.Duration("minute_every", cfg.MinuteEvery))

	sched, err := gocron.NewScheduler()
	if err != nil {
		return stats, fmt.Errorf("create scheduler: %w", err)
	}
	if _, err := sched.NewJob(gocron.DurationJob(cfg.MinuteEvery), gocron.NewTask(gen.Tick)); err != nil {
		return stats, fmt.Errorf("schedule match clock: %w", err)
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn(context.Background(), "scheduler shutdown", logger.Error(err))
		}
	}()

	ticker := time.NewTicker(interval(cfg.EPS))
	defer ticker.Stop()
	lastReport := time.Now()

loop:
	for cfg.MaxEvents <= 0 || stats.EventsGenerated < cfg.MaxEvents {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
		e, err := gen.Next()
		if err != nil {
			return stats, err
		}
		send(e)

		if time.Since(lastReport) >= reportInterval {
			lastReport = time.Now()
			log.Info(ctx, "progress",
				logger.Int("sent", stats.MatchEventsSent+stats.PlayerEventsSent),
				logger.Int("failed", stats.EventsFailed))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)
	return stats, nil
}

func interval(eps float64) time.Duration {
	if eps <= 0 {
		eps = DefaultEPS
	}
	d := time.Duration(float64(time.Second) / eps)
	if d <= 0 {
		d = time.Microsecond
	}
	return d
}

// openOutput opens the optional JSON-lines copy of the run.
func openOutput(filename string) (io.Writer, func(), error) {
	if filename == "" {
		return nil, func() {}, nil
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var eventsPerSecond float64
	sent := stats.MatchEventsSent + stats.PlayerEventsSent
	if stats.Duration > 0 {
		eventsPerSecond = float64(sent) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("matchEventsSent", stats.MatchEventsSent),
		logger.Int("playerEventsSent", stats.PlayerEventsSent),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
