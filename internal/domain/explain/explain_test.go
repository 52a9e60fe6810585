package explain_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/internal/domain/explain"
	"github.com/okian/matchpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingCompleter struct {
	prompts []explain.Prompt
	reply   string
	err     error
}

func (r *recordingCompleter) Complete(_ context.Context, p explain.Prompt) (string, error) {
	r.prompts = append(r.prompts, p)
	return r.reply, r.err
}

type brokenEmbedder struct{}

func (brokenEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("embedding service down")
}
func (brokenEmbedder) Dim() int { return 8 }

func sampleState() model.LiveMatchState {
	return model.LiveMatchState{
		MatchID:  "m1",
		HomeTeam: "Arsenal",
		AwayTeam: "Bayern",
		Minute:   61,
		Home:     model.SideTotals{Goals: 1, Shots: 9, Corners: 5, Fouls: 8, XG: 1.234},
		Away:     model.SideTotals{Goals: 1, Shots: 7, Corners: 2, Fouls: 11, XG: 0.8},
		NEvents:  75,
	}
}

func buildIndex(t *testing.T, emb embedding.Embedder, texts ...string) *embedding.Index {
	idx := embedding.NewIndex(emb.Dim())
	for i, text := range texts {
		v, err := emb.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if err := idx.Add(embedding.Doc{
			ID: int64(i + 1), Kind: "historical_match", Text: text,
			Meta: map[string]any{"rank": i}, Vector: v,
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return idx
}

func TestSnapshot(t *testing.T) {
	Convey("The snapshot renders the state deterministically", t, func() {
		So(explain.Snapshot(sampleState()), ShouldEqual,
			"Arsenal vs Bayern, minute 61. Score 1-1. xG 1.23-0.80. Shots 9-7. Corners 5-2. Fouls 8-11.")
	})
}

func TestExplain(t *testing.T) {
	Convey("Given an index of historical documents", t, func() {
		ctx := context.Background()
		emb := embedding.NewHashingEmbedder(256)
		idx := buildIndex(t, emb,
			"Historical match: Arsenal vs Bayern. Final 2-1. xG 1.9-1.1.",
			"Historical match: PSG vs Inter. Final 0-0. xG 0.4-0.3.",
			"Historical match: Arsenal vs Milan. Final 1-1. xG 1.2-0.8.",
		)
		probs := model.Probabilities{HomeWin: 0.41234, Draw: 0.35, AwayWin: 0.23766}

		Convey("When the completer answers", func() {
			completer := &recordingCompleter{reply: "- Arsenal dominate shots [1]"}
			ex := explain.New(emb, idx, explain.WithCompleter(completer), explain.WithTopK(2))

			out := ex.Explain(ctx, sampleState(), probs)

			Convey("Then its text is returned verbatim with ranked citations", func() {
				So(out.Degraded, ShouldBeNil)
				So(out.Text, ShouldEqual, "- Arsenal dominate shots [1]")
				So(len(out.Citations), ShouldEqual, 2)
				So(out.Citations[0].DocType, ShouldEqual, "historical_match")
			})

			Convey("Then the prompt is grounded on the retrieved documents", func() {
				So(len(completer.prompts), ShouldEqual, 1)
				p := completer.prompts[0]
				So(p.System, ShouldStartWith, "You are an expert football analyst.")
				So(p.User, ShouldContainSubstring, "Match snapshot:\nArsenal vs Bayern, minute 61.")
				So(p.User, ShouldContainSubstring, "HOME_WIN=0.412, DRAW=0.350, AWAY_WIN=0.238")
				So(p.User, ShouldContainSubstring, "[1] ")
				So(p.User, ShouldContainSubstring, "[2] ")
				So(p.User, ShouldNotContainSubstring, "[3] ")
				So(p.User, ShouldEndWith, "Reference the retrieved items by [#] when relevant.")
			})

			Convey("Then citations follow the retrieval ranking", func() {
				query, _ := emb.Embed(ctx, explain.Snapshot(sampleState()))
				hits, _ := idx.TopK(query, 2)
				So(out.Citations, ShouldResemble, explain.Citations(hits))
				So(strings.Contains(completer.prompts[0].User, "[1] "+hits[0].Doc.Text), ShouldBeTrue)
			})
		})

		Convey("When the completer fails", func() {
			ex := explain.New(emb, idx, explain.WithCompleter(&recordingCompleter{err: errors.New("429")}))
			out := ex.Explain(ctx, sampleState(), probs)

			Convey("Then the explanation degrades to the placeholder", func() {
				So(out.Text, ShouldEqual, explain.PlaceholderText)
				So(out.Citations, ShouldNotBeNil)
				So(out.Citations, ShouldBeEmpty)
				So(errors.Is(out.Degraded, explain.ErrCompletionFailed), ShouldBeTrue)
			})
		})

		Convey("When embedding fails", func() {
			completer := &recordingCompleter{reply: "unused"}
			ex := explain.New(brokenEmbedder{}, embedding.NewIndex(8), explain.WithCompleter(completer))
			out := ex.Explain(ctx, sampleState(), probs)

			Convey("Then the completer is never called", func() {
				So(errors.Is(out.Degraded, explain.ErrRetrievalFailed), ShouldBeTrue)
				So(completer.prompts, ShouldBeEmpty)
			})
		})

		Convey("When no completer is configured", func() {
			out := explain.New(emb, idx).Explain(ctx, sampleState(), probs)

			Convey("Then every explanation is the placeholder", func() {
				So(errors.Is(out.Degraded, explain.ErrNoCompleter), ShouldBeTrue)
				So(out.Text, ShouldEqual, explain.PlaceholderText)
			})
		})
	})
}
