package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"owlynn-be/pkg/store"
)

type fakeDurable struct {
	mu            sync.Mutex
	conversations []store.ConversationRecord
	documents     map[int64]store.Document
	nextConvID    int64
	nextDocID     int64
	failWith      error
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{documents: make(map[int64]store.Document)}
}

func (f *fakeDurable) AppendConversation(ctx context.Context, sessionID string, conv store.Conversation, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.nextConvID++
	f.conversations = append(f.conversations, store.ConversationRecord{
		ID:        f.nextConvID,
		SessionID: sessionID,
		Timestamp: at,
		Messages:  append([]store.Message(nil), conv.Messages...),
		Metadata:  conv.Metadata.Clone(),
	})
	return nil
}

func (f *fakeDurable) LatestConversation(ctx context.Context, sessionID string) (*store.ConversationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var rows []store.ConversationRecord
	for _, c := range f.conversations {
		if c.SessionID == sessionID {
			rows = append(rows, c)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})
	return &rows[0], nil
}

func (f *fakeDurable) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.conversations[:0]
	var n int64
	for _, c := range f.conversations {
		if c.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.conversations = kept
	return n, nil
}

func (f *fakeDurable) CreateDocument(ctx context.Context, doc *store.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.nextDocID++
	doc.ID = f.nextDocID
	f.documents[doc.ID] = *doc
	return nil
}

func (f *fakeDurable) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeDurable) FindDocuments(ctx context.Context, ids []int64) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Document
	// Deliberately return ascending id order, not the requested order.
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		if d, ok := f.documents[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDurable) ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []store.Document
	for _, d := range f.documents {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []store.Document{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (f *fakeDurable) deleteDocument(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.documents, id)
}

type fakeVectors struct {
	mu       sync.Mutex
	entries  map[string]map[string]store.VectorEntry
	ranking  []string
	failWith error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{entries: make(map[string]map[string]store.VectorEntry)}
}

func (f *fakeVectors) Upsert(ctx context.Context, collection string, entry store.VectorEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.entries[collection] == nil {
		f.entries[collection] = make(map[string]store.VectorEntry)
	}
	f.entries[collection][entry.ID] = entry
	return nil
}

// Query returns the configured ranking, truncated to limit.
func (f *fakeVectors) Query(ctx context.Context, collection, text string, limit int) ([]store.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var hits []store.VectorHit
	for _, id := range f.ranking {
		if len(hits) == limit {
			break
		}
		hits = append(hits, store.VectorHit{ID: id})
	}
	return hits, nil
}

func (f *fakeVectors) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries[collection])
}

var errConnRefused = errors.New("dial tcp: connection refused")
