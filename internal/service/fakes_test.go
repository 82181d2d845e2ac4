package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"owlynn-be/pkg/events"
	"owlynn-be/pkg/rag/memory"
	"owlynn-be/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// memDurable keeps the relational tier in maps.
type memDurable struct {
	mu            sync.Mutex
	nextID        int64
	docs          map[int64]store.Document
	conversations []store.ConversationRecord
}

func newMemDurable() *memDurable {
	return &memDurable{docs: make(map[int64]store.Document)}
}

func (d *memDurable) AppendConversation(ctx context.Context, sessionID string, conv store.Conversation, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.conversations = append(d.conversations, store.ConversationRecord{
		ID:        d.nextID,
		SessionID: sessionID,
		Timestamp: at,
		Messages:  conv.Messages,
		Metadata:  conv.Metadata,
	})
	return nil
}

func (d *memDurable) LatestConversation(ctx context.Context, sessionID string) (*store.ConversationRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var latest *store.ConversationRecord
	for i := range d.conversations {
		r := d.conversations[i]
		if r.SessionID != sessionID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) || (r.Timestamp.Equal(latest.Timestamp) && r.ID > latest.ID) {
			latest = &r
		}
	}
	return latest, nil
}

func (d *memDurable) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.conversations[:0]
	var n int64
	for _, r := range d.conversations {
		if r.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	d.conversations = kept
	return n, nil
}

func (d *memDurable) CreateDocument(ctx context.Context, doc *store.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	doc.ID = d.nextID
	d.docs[doc.ID] = *doc
	return nil
}

func (d *memDurable) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (d *memDurable) FindDocuments(ctx context.Context, ids []int64) ([]store.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []store.Document
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *memDurable) ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	all := make([]store.Document, 0, len(d.docs))
	for _, doc := range d.docs {
		all = append(all, doc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []store.Document{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (d *memDurable) documentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.docs)
}

// keywordVector puts anything mentioning an invoice on one axis and the
// rest on another.
func keywordVector(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "invoice") {
		return []float32{1, 0, 0}
	}
	return []float32{0, 1, 0}
}

type keywordEmbedder struct {
	err   error
	calls int
}

func (k *keywordEmbedder) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	return keywordVector(text), nil
}

type testEnv struct {
	memory  *memory.Manager
	durable *memDurable
	vectors *memory.ChromemIndex
	redis   *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	vectors, err := memory.NewChromemIndex("", func(ctx context.Context, text string) ([]float32, error) {
		return keywordVector(text), nil
	})
	require.NoError(t, err)

	durable := newMemDurable()
	return &testEnv{
		memory:  memory.NewManager(memory.NewRedisFastStore(client), durable, vectors),
		durable: durable,
		vectors: vectors,
		redis:   mr,
	}
}

type reindexRequest struct {
	id     int64
	reason string
}

type recordingPublisher struct {
	mu        sync.Mutex
	reindexed []reindexRequest
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	return p.err
}

func (p *recordingPublisher) PublishReindex(ctx context.Context, documentID int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reindexed = append(p.reindexed, reindexRequest{id: documentID, reason: reason})
	return p.err
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingEvents) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

var errUnavailable = errors.New("service unavailable")
