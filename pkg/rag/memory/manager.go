package memory

import (
	"context"
	"strconv"
	"time"

	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/store"
)

const (
	CollectionDocuments     = "documents"
	CollectionConversations = "conversations"

	DefaultTTL           = 24 * time.Hour
	DefaultMaxAgeDays    = 30
	DefaultSearchLimit   = 5
	fastKeyPrefix        = "conv:"
	moduleName           = "Memory"
	defaultDocumentsPage = 20
)

// FastKey is the key a session is stored under in the fast tier.
func FastKey(sessionID string) string {
	return fastKeyPrefix + sessionID
}

// FastStore is the expiring key-value tier. Load returns nil, nil on a miss.
type FastStore interface {
	Save(ctx context.Context, sessionID string, conv store.Conversation, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (*store.Conversation, error)
}

// DurableStore is the relational tier. Conversation rows are append-only and
// the latest row by timestamp is the current snapshot. Missing records come
// back as nil, nil.
type DurableStore interface {
	AppendConversation(ctx context.Context, sessionID string, conv store.Conversation, at time.Time) error
	LatestConversation(ctx context.Context, sessionID string) (*store.ConversationRecord, error)
	DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CreateDocument(ctx context.Context, doc *store.Document) error
	GetDocument(ctx context.Context, id int64) (*store.Document, error)
	FindDocuments(ctx context.Context, ids []int64) ([]store.Document, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, int64, error)
}

// VectorIndex is the similarity index. Query results are ordered by the
// index, nearest first.
type VectorIndex interface {
	Upsert(ctx context.Context, collection string, entry store.VectorEntry) error
	Query(ctx context.Context, collection, text string, limit int) ([]store.VectorHit, error)
}

// StoredDocument reports the id assigned to a document and whether its vector
// entry was written.
type StoredDocument struct {
	ID      int64
	Indexed bool
}

// Manager is the single entry point over the three tiers.
type Manager struct {
	fast    FastStore
	durable DurableStore
	vectors VectorIndex
	logger  logger.ILogger
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func NewManager(fast FastStore, durable DurableStore, vectors VectorIndex, opts ...Option) *Manager {
	m := &Manager{
		fast:    fast,
		durable: durable,
		vectors: vectors,
		logger:  logger.NewNopLogger(),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StoreConversation writes the full history to the fast tier with expiry and
// appends a durable snapshot. The two writes are independent; a failure in
// the second leaves the first in place.
func (m *Manager) StoreConversation(ctx context.Context, sessionID string, messages []store.Message, metadata store.Metadata) error {
	conv := store.Conversation{Messages: messages, Metadata: metadata.Clone()}
	if conv.Messages == nil {
		conv.Messages = []store.Message{}
	}

	if err := m.fast.Save(ctx, sessionID, conv, m.ttl); err != nil {
		return apperror.StoreConnectionFailure("fast save", err)
	}
	if err := m.durable.AppendConversation(ctx, sessionID, conv, m.now().UTC()); err != nil {
		return apperror.StoreConnectionFailure("durable append", err)
	}

	m.logger.Debug(moduleName, "Conversation stored", map[string]interface{}{
		"session_id": sessionID,
		"messages":   len(conv.Messages),
	})
	return nil
}

// GetConversation reads the fast tier first and falls back to the latest
// durable snapshot. A session present in neither tier yields nil, nil.
func (m *Manager) GetConversation(ctx context.Context, sessionID string) (*store.Conversation, error) {
	conv, err := m.fast.Load(ctx, sessionID)
	if err != nil {
		return nil, apperror.StoreConnectionFailure("fast load", err)
	}
	if conv != nil {
		return conv, nil
	}

	rec, err := m.durable.LatestConversation(ctx, sessionID)
	if err != nil {
		return nil, apperror.StoreConnectionFailure("durable load", err)
	}
	if rec == nil {
		return nil, nil
	}

	m.logger.Debug(moduleName, "Fast tier miss, served durable snapshot", map[string]interface{}{
		"session_id":  sessionID,
		"snapshot_id": rec.ID,
	})
	return &store.Conversation{Messages: rec.Messages, Metadata: rec.Metadata}, nil
}

// StoreDocument persists the document and, when an embedding is supplied,
// writes its vector entry keyed by the decimal document id. A failed vector
// write is logged and reported through Indexed; the document stays stored.
func (m *Manager) StoreDocument(ctx context.Context, content string, metadata store.Metadata, embedding []float32) (*StoredDocument, error) {
	doc := &store.Document{
		Filename:  stringValue(metadata, store.MetaFilename),
		FileType:  stringValue(metadata, store.MetaFileType),
		Content:   content,
		Metadata:  metadata.Clone(),
		CreatedAt: m.now().UTC(),
	}
	if err := m.durable.CreateDocument(ctx, doc); err != nil {
		return nil, apperror.StoreConnectionFailure("document insert", err)
	}

	res := &StoredDocument{ID: doc.ID}
	if len(embedding) == 0 {
		return res, nil
	}

	if err := m.upsertVector(ctx, doc, embedding); err != nil {
		m.logger.Warn(moduleName, "Vector entry not written", map[string]interface{}{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return res, nil
	}
	res.Indexed = true
	return res, nil
}

// IndexDocument writes or replaces the vector entry of an existing document.
func (m *Manager) IndexDocument(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) == 0 {
		return apperror.Validation("embedding is empty")
	}
	doc, err := m.durable.GetDocument(ctx, id)
	if err != nil {
		return apperror.StoreConnectionFailure("document load", err)
	}
	if doc == nil {
		return apperror.NotFound("document not found: " + strconv.FormatInt(id, 10))
	}
	if err := m.upsertVector(ctx, doc, embedding); err != nil {
		return apperror.StoreConnectionFailure("vector upsert", err)
	}
	return nil
}

func (m *Manager) upsertVector(ctx context.Context, doc *store.Document, embedding []float32) error {
	meta := doc.Metadata.Clone()
	// The chunk list is already in the durable record.
	delete(meta, store.MetaChunks)
	return m.vectors.Upsert(ctx, CollectionDocuments, store.VectorEntry{
		ID:        strconv.FormatInt(doc.ID, 10),
		Embedding: embedding,
		Metadata:  meta,
		Text:      doc.Content,
	})
}

// SearchDocuments returns the durable records of the nearest vector entries,
// in index order. Hits whose record no longer exists are skipped.
func (m *Manager) SearchDocuments(ctx context.Context, query string, limit int) ([]store.Document, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	hits, err := m.vectors.Query(ctx, CollectionDocuments, query, limit)
	if err != nil {
		return nil, apperror.StoreConnectionFailure("vector query", err)
	}
	if len(hits) == 0 {
		return []store.Document{}, nil
	}

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	docs, err := m.durable.FindDocuments(ctx, ids)
	if err != nil {
		return nil, apperror.StoreConnectionFailure("document lookup", err)
	}
	byID := make(map[int64]store.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	out := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Manager) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	doc, err := m.durable.GetDocument(ctx, id)
	if err != nil {
		return nil, apperror.StoreConnectionFailure("document load", err)
	}
	return doc, nil
}

// ListDocuments pages through documents newest first.
func (m *Manager) ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, int64, error) {
	if limit <= 0 {
		limit = defaultDocumentsPage
	}
	if offset < 0 {
		offset = 0
	}
	docs, total, err := m.durable.ListDocuments(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.StoreConnectionFailure("document list", err)
	}
	return docs, total, nil
}

// CleanupOldConversations removes durable snapshots older than maxAgeDays.
// Fast tier entries expire on their own and are not touched.
func (m *Manager) CleanupOldConversations(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	cutoff := m.now().UTC().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	n, err := m.durable.DeleteConversationsBefore(ctx, cutoff)
	if err != nil {
		return 0, apperror.StoreConnectionFailure("conversation cleanup", err)
	}
	m.logger.Info(moduleName, "Old conversations removed", map[string]interface{}{
		"max_age_days": maxAgeDays,
		"cutoff":       cutoff.Format(time.RFC3339),
		"deleted":      n,
	})
	return n, nil
}

func stringValue(m store.Metadata, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
