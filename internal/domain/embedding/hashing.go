// Package embedding maps text to fixed-length vectors and answers exact
// cosine top-k queries over an in-memory document index.
package embedding

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDim is the vector length used by the service and the backfill.
const DefaultDim = 768

// Embedder maps text into a fixed-dimension vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dim() int
}

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// HashingEmbedder is a stateless bag of unigrams and bigrams hashed into
// Dim buckets, L2 normalized. All components are non-negative.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder returns an embedder of the given dimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &HashingEmbedder{dim: dim}
}

// Dim returns the vector length.
func (h *HashingEmbedder) Dim() int { return h.dim }

// Embed hashes the lowercase word unigrams and bigrams of text.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}
	vec := make([]float64, h.dim)
	for i, tok := range tokens {
		vec[h.bucket(tok)]++
		if i > 0 {
			vec[h.bucket(tokens[i-1]+" "+tok)]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (h *HashingEmbedder) bucket(term string) int {
	return int(xxhash.Sum64String(term) % uint64(h.dim))
}
