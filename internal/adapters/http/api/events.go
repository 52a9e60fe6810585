package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/matchpulse/internal/domain/normalize"
)

const maxEventBytes = 1 << 20

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostMatchEvent handles POST /events/match requests.
func (h *EventsHandler) HandlePostMatchEvent(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, normalize.MatchKind)
}

// HandlePostPlayerEvent handles POST /events/player requests.
func (h *EventsHandler) HandlePostPlayerEvent(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, normalize.PlayerKind)
}

func (h *EventsHandler) handle(w http.ResponseWriter, r *http.Request, kind normalize.Kind) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrTooLarge)
		return
	}

	err = h.deps.PublishEvent(r.Context(), kind, body)
	switch {
	case errors.Is(err, normalize.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%w: %v", ErrUnavailable, err))
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	}
}
