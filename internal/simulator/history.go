package simulator

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/okian/matchpulse/internal/domain/embedding"
)

// HistoricalDocKind tags synthetic historical match summaries.
const HistoricalDocKind = "historical_match"

// DefaultHistoricalDocs is the size of the seeded retrieval store.
const DefaultHistoricalDocs = 200

// HistoricalDocs returns n synthetic final-score summaries without vectors.
func HistoricalDocs(n int, seed uint64, now time.Time) []embedding.Doc {
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	g := &Generator{rng: rand.New(rand.NewPCG(seed, seed>>1|1)), now: func() time.Time { return now }}

	docs := make([]embedding.Doc, 0, n)
	for range n {
		home, away := g.pairing()
		hg, ag := g.rng.IntN(5), g.rng.IntN(5)
		hxg := round(g.uniform(0.2, 3.2), 2)
		axg := round(g.uniform(0.2, 3.2), 2)
		hs, as := 3+g.rng.IntN(16), 3+g.rng.IntN(16)

		text := fmt.Sprintf("Historical match: %s vs %s. Final %d-%d. xG %s-%s. Shots %d-%d. "+
			"Pattern: goal_diff=%d, xg_diff=%.2f, shot_diff=%d.",
			home, away, hg, ag, num(hxg), num(axg), hs, as, hg-ag, hxg-axg, hs-as)

		docs = append(docs, embedding.Doc{
			Kind: HistoricalDocKind,
			Text: text,
			Meta: map[string]any{
				"home":  home,
				"away":  away,
				"final": fmt.Sprintf("%d-%d", hg, ag),
				"xg":    num(hxg) + "-" + num(axg),
				"shots": fmt.Sprintf("%d-%d", hs, as),
				"ts":    g.timestamp(),
			},
		})
	}
	return docs
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
