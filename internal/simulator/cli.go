package simulator

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/matchpulse/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initializes the global logger writing to stdout and, when
// logFile is set, to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWriter(w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Match Event Simulator
=====================

Generates live match and player events for concurrent synthetic matches.

Usage:
  go run ./cmd/simulator [options]

Options:
  -mode string
        broker publishes to the event streams, http posts to the service (default "broker")
  -url string
        Base URL of the service in http mode (default "http://localhost:8000")
  -matches int
        Concurrent matches to simulate (default 3)
  -eps float
        Events per second, approximately (default 20)
  -minute duration
        Wall-clock length of one match minute (default 1.5s)
  -events int
        Stop after this many events; 0 runs until interrupted (default 0)
  -seed uint
        Random seed; 0 picks one from the clock
  -output string
        Write every sent record to this JSON-lines file
  -log string
        Also write logs to this file
  -verbose
        Log every event
  -help
        Show this help message

Environment:
  MATCHPULSE_BROKER_ADDRS, MATCHPULSE_TOPIC_MATCH_EVENTS and
  MATCHPULSE_TOPIC_PLAYER_EVENTS select the streams in broker mode.

Examples:
  go run ./cmd/simulator -eps 50 -matches 5
  go run ./cmd/simulator -mode http -events 500
`)
}

// DefaultHTTPTimeout bounds one ingest request in http mode.
const DefaultHTTPTimeout = 10 * time.Second
