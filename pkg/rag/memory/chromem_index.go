package memory

import (
	"context"
	"fmt"
	"sync"

	"owlynn-be/pkg/embedding"
	"owlynn-be/pkg/store"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex is an embedded vector index persisted to a local directory.
// It keeps the two logical collections the service uses.
type ChromemIndex struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// EmbeddingFunc adapts a provider to chromem's query embedder.
func EmbeddingFunc(p embedding.EmbeddingProvider) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return p.Generate(ctx, text, embedding.TaskRetrievalQuery)
	}
}

// NewChromemIndex opens a persistent index at path, or an in-memory one when
// path is empty.
func NewChromemIndex(path string, embed chromem.EmbeddingFunc) (*ChromemIndex, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem database: %w", err)
		}
	}

	idx := &ChromemIndex{db: db, collections: make(map[string]*chromem.Collection)}
	for _, name := range []string{CollectionDocuments, CollectionConversations} {
		c, err := db.GetOrCreateCollection(name, nil, embed)
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		idx.collections[name] = c
	}
	return idx, nil
}

func (i *ChromemIndex) collection(name string) (*chromem.Collection, error) {
	c, ok := i.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

func (i *ChromemIndex) Upsert(ctx context.Context, collection string, entry store.VectorEntry) error {
	c, err := i.collection(collection)
	if err != nil {
		return err
	}

	meta := make(map[string]string, len(entry.Metadata))
	for k, v := range entry.Metadata {
		meta[k] = fmt.Sprint(v)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return c.AddDocument(ctx, chromem.Document{
		ID:        entry.ID,
		Metadata:  meta,
		Embedding: entry.Embedding,
		Content:   entry.Text,
	})
}

func (i *ChromemIndex) Query(ctx context.Context, collection, text string, limit int) ([]store.VectorHit, error) {
	c, err := i.collection(collection)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	// chromem rejects nResults larger than the collection.
	n := min(limit, c.Count())
	if n <= 0 {
		return []store.VectorHit{}, nil
	}

	results, err := c.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]store.VectorHit, len(results))
	for j, r := range results {
		meta := make(store.Metadata, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		hits[j] = store.VectorHit{ID: r.ID, Score: r.Similarity, Metadata: meta, Text: r.Content}
	}
	return hits, nil
}

func (i *ChromemIndex) Count(collection string) int {
	c, err := i.collection(collection)
	if err != nil {
		return 0
	}
	return c.Count()
}
