// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PredictionDependencies
	EventDependencies
}

// PredictionDependencies serves the read path.
type PredictionDependencies interface {
	// LatestPrediction returns the newest prediction of a match or an error
	// for which the NotFound check given to the server reports true.
	LatestPrediction(ctx context.Context, matchID string) (types.PredictionRecord, error)
}

// EventDependencies accepts raw inbound records.
type EventDependencies interface {
	// PublishEvent validates raw and hands it to the broker. Validation
	// failures wrap normalize.ErrValidation.
	PublishEvent(ctx context.Context, kind normalize.Kind, raw []byte) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	predictionHandler *PredictionHandler
}

// NewServer creates a new API server with all handlers. notFound tells the
// read path which errors mean "no prediction yet".
func NewServer(deps Dependencies, statsProvider StatsProvider, notFound func(error) bool) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		eventsHandler:     NewEventsHandler(deps),
		predictionHandler: NewPredictionHandler(deps, notFound),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events/match", MetricsMiddleware(s.eventsHandler.HandlePostMatchEvent, "events_match"))
	mux.HandleFunc("/events/player", MetricsMiddleware(s.eventsHandler.HandlePostPlayerEvent, "events_player"))
	mux.HandleFunc("GET /match/{match_id}/latest", MetricsMiddleware(s.predictionHandler.HandleGetLatest, "match_latest"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
