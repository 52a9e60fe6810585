package embedding

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// cosineEpsilon keeps cosine finite for zero vectors.
const cosineEpsilon = 1e-9

// Doc is an immutable historical document with its embedding.
type Doc struct {
	ID      int64
	Kind    string
	MatchID string
	Text    string
	Meta    map[string]any
	Vector  []float64
}

// Hit is a ranked retrieval result.
type Hit struct {
	Doc   Doc
	Score float64
}

// Cosine returns dot(a,b) / (|a|*|b| + 1e-9). a and b must have equal length.
func Cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + cosineEpsilon)
}

// Index holds documents in insertion order. Writes happen during loading;
// queries only read.
type Index struct {
	mu   sync.RWMutex
	dim  int
	docs []Doc
}

// NewIndex returns an empty index for vectors of length dim.
func NewIndex(dim int) *Index {
	return &Index{dim: dim}
}

// Dim returns the vector length of the index.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Add appends docs. No document is added if any has the wrong dimension.
func (x *Index) Add(docs ...Doc) error {
	for _, d := range docs {
		if len(d.Vector) != x.dim {
			return fmt.Errorf("%w: doc %d has %d, index has %d", ErrDimensionMismatch, d.ID, len(d.Vector), x.dim)
		}
	}
	x.mu.Lock()
	x.docs = append(x.docs, docs...)
	x.mu.Unlock()
	return nil
}

// TopK scores every document against query and returns the k best in
// descending similarity. Equal scores keep insertion order. k >= Len
// returns the full ranking; k <= 0 returns nothing.
func (x *Index) TopK(query []float64, k int) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	x.mu.RLock()
	hits := make([]Hit, len(x.docs))
	for i, d := range x.docs {
		hits[i] = Hit{Doc: d, Score: Cosine(query, d.Vector)}
	}
	x.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
