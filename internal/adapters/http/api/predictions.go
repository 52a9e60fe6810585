package api

import (
	"errors"
	"net/http"
	"strings"
)

var errMissingMatchID = errors.New("match id is required")

// PredictionHandler serves the latest prediction of a match.
type PredictionHandler struct {
	deps     PredictionDependencies
	notFound func(error) bool
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(deps PredictionDependencies, notFound func(error) bool) *PredictionHandler {
	if notFound == nil {
		notFound = func(error) bool { return false }
	}
	return &PredictionHandler{deps: deps, notFound: notFound}
}

// HandleGetLatest handles GET /match/{match_id}/latest requests.
func (h *PredictionHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	matchID := strings.TrimSpace(r.PathValue("match_id"))
	if matchID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errMissingMatchID)
		return
	}
	rec, err := h.deps.LatestPrediction(r.Context(), matchID)
	if err != nil {
		if h.notFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found"})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
