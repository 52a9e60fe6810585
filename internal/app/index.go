package service

import (
	"context"
	"fmt"

	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/pkg/metrics"
)

// DocLoader reads the embedded retrieval documents.
type DocLoader interface {
	LoadDocs(ctx context.Context) ([]embedding.Doc, error)
}

// LoadIndex builds the read-only retrieval index from loader.
func LoadIndex(ctx context.Context, loader DocLoader, dim int) (*embedding.Index, error) {
	docs, err := loader.LoadDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load retrieval docs: %w", err)
	}
	idx := embedding.NewIndex(dim)
	if err := idx.Add(docs...); err != nil {
		return nil, fmt.Errorf("index retrieval docs: %w", err)
	}
	metrics.UpdateIndexDocuments(idx.Len())
	return idx, nil
}
