// Package explain builds grounded natural-language explanations for predictions.
package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/internal/domain/model"
)

// PlaceholderText is the explanation published when no grounded text could be produced.
const PlaceholderText = "Explanation unavailable."

const systemPrompt = "You are an expert football analyst. " +
	"Given a live match snapshot and some retrieved historical context, " +
	"write a short, specific explanation for the prediction."

const instructions = "Write 5-8 bullet points explaining the prediction. " +
	"Reference the retrieved items by [#] when relevant."

// Prompt is a chat-style completion request.
type Prompt struct {
	System string
	User   string
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Explanation is the explainer's result. Degraded is set when Text is the
// placeholder and carries the cause.
type Explanation struct {
	Text      string
	Citations []model.Citation
	Degraded  error
}

// Explainer retrieves similar history and asks the completer to explain a prediction.
type Explainer struct {
	embedder  embedding.Embedder
	index     *embedding.Index
	completer Completer
	topK      int
}

// Option applies a configuration option to the Explainer.
type Option func(*Explainer)

// WithCompleter sets the completion provider. Without one every explanation degrades.
func WithCompleter(c Completer) Option {
	return func(e *Explainer) {
		if c != nil {
			e.completer = c
		}
	}
}

// WithTopK sets the number of retrieved documents.
func WithTopK(k int) Option {
	return func(e *Explainer) {
		if k > 0 {
			e.topK = k
		}
	}
}

// New returns an explainer over index.
func New(embedder embedding.Embedder, index *embedding.Index, opts ...Option) *Explainer {
	e := &Explainer{embedder: embedder, index: index, topK: 5}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot renders the deterministic text form of a match state.
func Snapshot(s model.LiveMatchState) string {
	return fmt.Sprintf("%s vs %s, minute %d. Score %d-%d. xG %.2f-%.2f. Shots %d-%d. Corners %d-%d. Fouls %d-%d.",
		s.HomeTeam, s.AwayTeam, s.Minute,
		s.Home.Goals, s.Away.Goals,
		s.Home.XG, s.Away.XG,
		s.Home.Shots, s.Away.Shots,
		s.Home.Corners, s.Away.Corners,
		s.Home.Fouls, s.Away.Fouls)
}

// BuildPrompt assembles the grounded prompt from a snapshot, probabilities
// and retrieved documents labelled [1]..[k].
func BuildPrompt(snapshot string, p model.Probabilities, hits []embedding.Hit) Prompt {
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = fmt.Sprintf("[%d] %s", i+1, h.Doc.Text)
	}
	var b strings.Builder
	b.WriteString("Match snapshot:\n")
	b.WriteString(snapshot)
	b.WriteString("\n\nModel probabilities:\n")
	fmt.Fprintf(&b, "HOME_WIN=%.3f, DRAW=%.3f, AWAY_WIN=%.3f", p.HomeWin, p.Draw, p.AwayWin)
	b.WriteString("\n\nRetrieved context:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return Prompt{System: systemPrompt, User: b.String()}
}

// Citations lists the retrieved documents in rank order.
func Citations(hits []embedding.Hit) []model.Citation {
	out := make([]model.Citation, len(hits))
	for i, h := range hits {
		out[i] = model.Citation{DocID: h.Doc.ID, DocType: h.Doc.Kind, Meta: h.Doc.Meta}
	}
	return out
}

// Explain never fails: any retrieval or completion problem yields the
// placeholder text with no citations and the cause in Degraded.
func (e *Explainer) Explain(ctx context.Context, s model.LiveMatchState, p model.Probabilities) Explanation {
	if e.completer == nil {
		return degraded(ErrNoCompleter)
	}
	snapshot := Snapshot(s)
	query, err := e.embedder.Embed(ctx, snapshot)
	if err != nil {
		return degraded(fmt.Errorf("%w: embed: %w", ErrRetrievalFailed, err))
	}
	hits, err := e.index.TopK(query, e.topK)
	if err != nil {
		return degraded(fmt.Errorf("%w: %w", ErrRetrievalFailed, err))
	}
	text, err := e.completer.Complete(ctx, BuildPrompt(snapshot, p, hits))
	if err != nil {
		return degraded(fmt.Errorf("%w: %w", ErrCompletionFailed, err))
	}
	return Explanation{Text: text, Citations: Citations(hits)}
}

func degraded(cause error) Explanation {
	return Explanation{Text: PlaceholderText, Citations: []model.Citation{}, Degraded: cause}
}
