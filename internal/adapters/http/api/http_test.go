package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/matchpulse/internal/adapters/http/api"
	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var errNoPrediction = errors.New("no prediction")

// Mock implementations for testing
type mockDependencies struct {
	latest     map[string]types.PredictionRecord
	readErr    error
	publishErr error
	published  []string
}

func (m *mockDependencies) LatestPrediction(_ context.Context, matchID string) (types.PredictionRecord, error) {
	if m.readErr != nil {
		return types.PredictionRecord{}, m.readErr
	}
	rec, ok := m.latest[matchID]
	if !ok {
		return types.PredictionRecord{}, errNoPrediction
	}
	return rec, nil
}

func (m *mockDependencies) PublishEvent(_ context.Context, kind normalize.Kind, raw []byte) error {
	if _, err := normalize.Normalize(kind, raw); err != nil {
		return err
	}
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, string(kind)+":"+string(raw))
	return nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}},
		func(err error) bool { return errors.Is(err, errNoPrediction) })
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{latest: map[string]types.PredictionRecord{}}
		mux := newMux(deps)

		Convey("Then the metrics endpoint is served", func() {
			w := serve(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "matchpulse_")
		})

		Convey("And the health endpoint reports ok", func() {
			w := serve(mux, "GET", "/health", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"ok":true}`)
		})

		Convey("And stats are served as JSON", func() {
			w := serve(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And unknown paths are not found", func() {
			w := serve(mux, "GET", "/matches", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLatestPrediction(t *testing.T) {
	Convey("Given a match with a prediction", t, func() {
		ts := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)
		deps := &mockDependencies{latest: map[string]types.PredictionRecord{
			"m1": types.FromPrediction(model.Prediction{
				MatchID: "m1", TS: ts, ModelVersion: "xgb_v1",
				Probs:    model.Probabilities{HomeWin: 0.5, Draw: 0.3, AwayWin: 0.2},
				Features: map[string]float64{"minute": 61},
			}),
		}}
		mux := newMux(deps)

		Convey("When requesting its latest prediction", func() {
			w := serve(mux, "GET", "/match/m1/latest", "")

			Convey("Then the record is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["match_id"], ShouldEqual, "m1")
				So(body["model_version"], ShouldEqual, "xgb_v1")
				So(body["probs"].(map[string]any)["HOME_WIN"], ShouldEqual, 0.5)
				So(body["rag_citations"], ShouldResemble, []any{})
			})
		})

		Convey("When requesting an unknown match", func() {
			w := serve(mux, "GET", "/match/m2/latest", "")

			Convey("Then not_found is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"code":"not_found"}`)
			})
		})

		Convey("When the read path fails", func() {
			deps.readErr = errors.New("redis: connection refused")
			w := serve(mux, "GET", "/match/m1/latest", "")

			Convey("Then internal details are not exposed", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "redis")
			})
		})

		Convey("When using the wrong method", func() {
			w := serve(mux, "POST", "/match/m1/latest", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestPostEvents(t *testing.T) {
	Convey("Given the event ingest endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)
		match := `{"match_id":"m1","ts":"2025-05-01T19:00:00Z","minute":4,"event_type":"shot","team_side":"home"}`
		player := `{"match_id":"m1","ts":"2025-05-01T19:00:00Z","player":"Striker A","stat_type":"xg","value":0.2}`

		Convey("Valid records are accepted and published to their stream", func() {
			w := serve(mux, "POST", "/events/match", match)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"accepted"`)

			w = serve(mux, "POST", "/events/player", player)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.published, ShouldResemble, []string{"match:" + match, "player:" + player})
		})

		Convey("Invalid records are rejected", func() {
			w := serve(mux, "POST", "/events/match", `{"match_id":"m1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")

			w = serve(mux, "POST", "/events/player", `[1,2]`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.published, ShouldBeEmpty)
		})

		Convey("Broker failures are reported as unavailable", func() {
			deps.publishErr = fmt.Errorf("publish failed: %w", errors.New("broker down"))
			w := serve(mux, "POST", "/events/match", match)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Other methods are not found", func() {
			w := serve(mux, "GET", "/events/match", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
