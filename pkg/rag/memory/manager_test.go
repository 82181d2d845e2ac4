package memory

import (
	"context"
	"strconv"
	"testing"
	"time"

	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	mr      *miniredis.Miniredis
	fast    *RedisFastStore
	durable *fakeDurable
	vectors *fakeVectors
	clock   time.Time
	manager *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		mr:      mr,
		fast:    NewRedisFastStore(client),
		durable: newFakeDurable(),
		vectors: newFakeVectors(),
		clock:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.manager = NewManager(env.fast, env.durable, env.vectors,
		WithClock(func() time.Time { return env.clock }),
	)
	return env
}

func adaHistory() []store.Message {
	return []store.Message{
		store.NewMessage(store.RoleUser, "Hello, my name is Ada"),
		store.NewMessage(store.RoleAssistant, "Nice to meet you, Ada"),
		store.NewMessage(store.RoleUser, "What is my name?"),
		store.NewMessage(store.RoleAssistant, "Your name is Ada"),
	}
}

func TestStoreConversation_RoundTripPreservesOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.manager.StoreConversation(ctx, "s1", adaHistory(), store.Metadata{"k": "v"}))

	got, err := env.manager.GetConversation(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Messages, 4)
	for i, want := range adaHistory() {
		assert.Equal(t, want.Role, got.Messages[i].Role)
		assert.Equal(t, want.Content, got.Messages[i].Content)
	}
	assert.Equal(t, "v", got.Metadata["k"])
}

func TestStoreConversation_FastTierExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.manager.StoreConversation(ctx, "s1", adaHistory(), nil))
	assert.True(t, env.mr.Exists(FastKey("s1")))
	assert.Equal(t, DefaultTTL, env.mr.TTL(FastKey("s1")))

	env.mr.FastForward(DefaultTTL + time.Second)
	assert.False(t, env.mr.Exists(FastKey("s1")))
}

func TestGetConversation_FallsBackToLatestDurableSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := adaHistory()[:2]
	require.NoError(t, env.manager.StoreConversation(ctx, "s1", first, nil))
	env.clock = env.clock.Add(time.Minute)
	require.NoError(t, env.manager.StoreConversation(ctx, "s1", adaHistory(), nil))

	require.NoError(t, env.fast.Delete(ctx, "s1"))

	got, err := env.manager.GetConversation(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Messages, 4)
	assert.Equal(t, "Your name is Ada", got.Messages[3].Content)
}

func TestGetConversation_SameTimestampUsesHighestID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.manager.StoreConversation(ctx, "s1", adaHistory()[:1], nil))
	require.NoError(t, env.manager.StoreConversation(ctx, "s1", adaHistory()[:3], nil))
	env.mr.FlushAll()

	got, err := env.manager.GetConversation(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestGetConversation_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.manager.GetConversation(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreConversation_DurableFailureKeepsFastWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.durable.failWith = errConnRefused

	err := env.manager.StoreConversation(ctx, "s1", adaHistory(), nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindStoreConnectionFailure))
	assert.True(t, env.mr.Exists(FastKey("s1")))
}

func TestGetConversation_FastTierDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	m := NewManager(NewRedisFastStore(client), newFakeDurable(), newFakeVectors())

	_, err := m.GetConversation(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindStoreConnectionFailure))
}

func TestStoreDocument_NoEmbeddingNoVectorEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.StoreDocument(ctx, "plain text", store.Metadata{
		store.MetaFilename: "notes.txt",
		store.MetaFileType: ".txt",
	}, nil)
	require.NoError(t, err)
	assert.False(t, res.Indexed)
	assert.Equal(t, 0, env.vectors.count(CollectionDocuments))

	doc, err := env.manager.GetDocument(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, ".txt", doc.FileType)
}

func TestStoreDocument_WithEmbeddingUsesDocumentID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.StoreDocument(ctx, "first", nil, nil)
	require.NoError(t, err)
	res, err := env.manager.StoreDocument(ctx, "second", store.Metadata{
		store.MetaChunks: []string{"second"},
		"author":         "ada",
	}, []float32{0.1, 0.2})
	require.NoError(t, err)
	assert.True(t, res.Indexed)

	entry, ok := env.vectors.entries[CollectionDocuments][strconv.FormatInt(res.ID, 10)]
	require.True(t, ok)
	assert.Equal(t, "2", entry.ID)
	assert.Equal(t, "second", entry.Text)
	assert.Equal(t, "ada", entry.Metadata["author"])
	assert.NotContains(t, entry.Metadata, store.MetaChunks)
}

func TestStoreDocument_VectorFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	env.vectors.failWith = errConnRefused

	res, err := env.manager.StoreDocument(context.Background(), "body", nil, []float32{1})
	require.NoError(t, err)
	assert.False(t, res.Indexed)
	assert.NotZero(t, res.ID)
}

func TestIndexDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.manager.StoreDocument(ctx, "body", nil, nil)
	require.NoError(t, err)

	require.NoError(t, env.manager.IndexDocument(ctx, res.ID, []float32{1, 0}))
	assert.Equal(t, 1, env.vectors.count(CollectionDocuments))

	err = env.manager.IndexDocument(ctx, 999, []float32{1})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	err = env.manager.IndexDocument(ctx, res.ID, nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSearchDocuments_JoinsInIndexOrderAndDropsMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, body := range []string{"one", "two", "three"} {
		_, err := env.manager.StoreDocument(ctx, body, nil, []float32{1})
		require.NoError(t, err)
	}
	env.durable.deleteDocument(2)
	env.vectors.ranking = []string{"3", "2", "not-a-number", "1"}

	docs, err := env.manager.SearchDocuments(ctx, "anything", 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "three", docs[0].Content)
	assert.Equal(t, "one", docs[1].Content)
}

func TestSearchDocuments_LimitAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs, err := env.manager.SearchDocuments(ctx, "q", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)

	for i := 0; i < 8; i++ {
		_, err := env.manager.StoreDocument(ctx, "d", nil, []float32{1})
		require.NoError(t, err)
	}
	env.vectors.ranking = []string{"1", "2", "3", "4", "5", "6", "7", "8"}

	docs, err = env.manager.SearchDocuments(ctx, "q", 0)
	require.NoError(t, err)
	assert.Len(t, docs, DefaultSearchLimit)
}

func TestListDocuments_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, body := range []string{"a", "b", "c"} {
		_, err := env.manager.StoreDocument(ctx, body, nil, nil)
		require.NoError(t, err)
	}

	docs, total, err := env.manager.ListDocuments(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0].Content)
}

func TestCleanupOldConversations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock

	env.clock = now.Add(-31 * 24 * time.Hour)
	require.NoError(t, env.manager.StoreConversation(ctx, "old", adaHistory(), nil))
	env.clock = now.Add(-29 * 24 * time.Hour)
	require.NoError(t, env.manager.StoreConversation(ctx, "recent", adaHistory(), nil))
	env.clock = now

	n, err := env.manager.CleanupOldConversations(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := env.durable.LatestConversation(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, rec)
	rec, err = env.durable.LatestConversation(ctx, "recent")
	require.NoError(t, err)
	assert.NotNil(t, rec)

	// Fast tier is left alone.
	assert.True(t, env.mr.Exists(FastKey("old")))
}

func TestCleanupOldConversations_DefaultAge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock

	env.clock = now.Add(-(DefaultMaxAgeDays + 1) * 24 * time.Hour)
	require.NoError(t, env.manager.StoreConversation(ctx, "old", adaHistory(), nil))
	env.clock = now

	n, err := env.manager.CleanupOldConversations(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
