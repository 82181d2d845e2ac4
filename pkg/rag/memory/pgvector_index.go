package memory

import (
	"context"
	"fmt"

	"owlynn-be/internal/entity"
	"owlynn-be/internal/repository/unitofwork"
	"owlynn-be/pkg/embedding"
	"owlynn-be/pkg/store"
)

// PgVectorIndex stores entries in the vector_entries table and ranks them by
// cosine distance. Query text is embedded with the configured provider.
type PgVectorIndex struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
}

func NewPgVectorIndex(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider) *PgVectorIndex {
	return &PgVectorIndex{uowFactory: uowFactory, embedder: embedder}
}

func (i *PgVectorIndex) Upsert(ctx context.Context, collection string, entry store.VectorEntry) error {
	uow := i.uowFactory.NewUnitOfWork(ctx)
	return uow.VectorEntryRepository().Upsert(ctx, &entity.VectorEntry{
		Id:         entry.ID,
		Collection: collection,
		Embedding:  entry.Embedding,
		Metadata:   entry.Metadata,
		Document:   entry.Text,
	})
}

func (i *PgVectorIndex) Query(ctx context.Context, collection, text string, limit int) ([]store.VectorHit, error) {
	vec, err := i.embedder.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	uow := i.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.VectorEntryRepository().SearchSimilar(ctx, collection, vec, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]store.VectorHit, len(scored))
	for j, s := range scored {
		hits[j] = store.VectorHit{
			ID:       s.Entry.Id,
			Score:    float32(s.Similarity),
			Metadata: s.Entry.Metadata,
			Text:     s.Entry.Document,
		}
	}
	return hits, nil
}
