package contract

import (
	"context"

	"owlynn-be/internal/entity"
)

// ScoredVectorEntry wraps VectorEntry with its similarity score
type ScoredVectorEntry struct {
	Entry      *entity.VectorEntry
	Similarity float64 // 1.0 = identical
}

type VectorEntryRepository interface {
	// Upsert replaces any entry with the same (collection, id).
	Upsert(ctx context.Context, entry *entity.VectorEntry) error
	SearchSimilar(ctx context.Context, collection string, embedding []float32, limit int) ([]*ScoredVectorEntry, error)
}
