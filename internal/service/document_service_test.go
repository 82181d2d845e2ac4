package service

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"owlynn-be/internal/config"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/document"
	"owlynn-be/pkg/events"
	"owlynn-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenMB = 10 * 1024 * 1024

type documentFixture struct {
	env       *testEnv
	svc       IDocumentService
	embedder  *keywordEmbedder
	publisher *recordingPublisher
	events    *recordingEvents
	uploadDir string
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	env := newTestEnv(t)
	files := config.FilesConfig{
		MaxFileSize: tenMB,
		UploadDir:   t.TempDir(),
		ChunkSize:   1000,
	}
	f := &documentFixture{
		env:       env,
		embedder:  &keywordEmbedder{},
		publisher: &recordingPublisher{},
		events:    &recordingEvents{},
		uploadDir: files.UploadDir,
	}
	f.svc = NewDocumentService(
		env.memory,
		document.NewConverter(files, config.VisionConfig{}),
		f.embedder,
		f.publisher,
		f.events,
		files,
		8000,
		logger.NewNopLogger(),
	)
	return f
}

func (f *documentFixture) upload(t *testing.T, name, body string) string {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: name,
		Size:     int64(len(body)),
		Reader:   strings.NewReader(body),
	})
	require.NoError(t, err)
	return res.Filename
}

func uploadDirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestUpload_TextIsStoredAndIndexed(t *testing.T) {
	f := newDocumentFixture(t)
	body := "The invoice total is 42 euros. Payment is due in May."

	res, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "invoice.txt",
		Size:     int64(len(body)),
		Reader:   strings.NewReader(body),
		Metadata: store.Metadata{"source": "api"},
	})
	require.NoError(t, err)

	assert.NotZero(t, res.ID)
	assert.True(t, res.Indexed)
	assert.Equal(t, "invoice.txt", res.Filename)
	assert.Contains(t, res.Content, "invoice total is 42")
	assert.Equal(t, "invoice.txt", res.Metadata[store.MetaFilename])
	assert.Equal(t, "text", res.Metadata[store.MetaCategory])
	assert.Equal(t, "api", res.Metadata["source"])

	assert.Equal(t, 1, f.env.durable.documentCount())
	assert.Equal(t, 1, f.env.vectors.Count("documents"))
	assert.Empty(t, f.publisher.reindexed)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.TypeDocumentUploaded, f.events.events[0].EventType())
	assert.Equal(t, res.ID, f.events.events[0].Payload()["document_id"])
}

func TestUpload_DeclaredSizeOverLimit(t *testing.T) {
	f := newDocumentFixture(t)
	body := bytes.Repeat([]byte("a"), 15*1024*1024)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "big.txt",
		Size:     int64(len(body)),
		Reader:   bytes.NewReader(body),
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindFileTooLarge))

	assert.Zero(t, uploadDirEntries(t, f.uploadDir))
	assert.Zero(t, f.env.durable.documentCount())
	assert.Zero(t, f.embedder.calls)
}

func TestUpload_StreamOverLimitIsRemoved(t *testing.T) {
	f := newDocumentFixture(t)
	body := bytes.Repeat([]byte("a"), 15*1024*1024)

	// The client does not declare a size; the cap applies while writing.
	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "big.txt",
		Reader:   bytes.NewReader(body),
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindFileTooLarge))

	assert.Zero(t, uploadDirEntries(t, f.uploadDir))
	assert.Zero(t, f.env.durable.documentCount())
}

func TestUpload_Rejections(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, UploadInput{Filename: "archive.zip", Reader: strings.NewReader("PK")})
	assert.True(t, apperror.Is(err, apperror.KindUnsupportedFileType))
	assert.ErrorContains(t, err, ".zip")

	_, err = f.svc.Upload(ctx, UploadInput{Filename: "", Reader: strings.NewReader("x")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	assert.Zero(t, f.env.durable.documentCount())
}

func TestUpload_ConversionFailureCleansUp(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "broken.json",
		Reader:   strings.NewReader(`{"open": `),
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConversionFailure))
	assert.ErrorContains(t, err, "broken.json")

	assert.Zero(t, uploadDirEntries(t, f.uploadDir))
	assert.Zero(t, f.env.durable.documentCount())
}

func TestUpload_EmbeddingFailureQueuesReindex(t *testing.T) {
	f := newDocumentFixture(t)
	f.embedder.err = errUnavailable

	res, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "notes.md",
		Reader:   strings.NewReader("# Meeting\nShip on Friday."),
	})
	require.NoError(t, err)

	assert.False(t, res.Indexed)
	assert.Equal(t, 1, f.env.durable.documentCount())
	assert.Zero(t, f.env.vectors.Count("documents"))
	assert.Equal(t, []reindexRequest{{id: res.ID, reason: "embedding unavailable"}}, f.publisher.reindexed)
}

func TestUpload_EventFailureIsNotFatal(t *testing.T) {
	f := newDocumentFixture(t)
	f.events.err = errUnavailable

	f.upload(t, "notes.txt", "meeting notes")
	assert.Equal(t, 1, f.env.durable.documentCount())
}

func TestSearch_NearestFirst(t *testing.T) {
	f := newDocumentFixture(t)
	f.upload(t, "notes.txt", "meeting notes for the team")
	f.upload(t, "invoice.txt", "invoice number 7, total 42")

	res, err := f.svc.Search(context.Background(), "where is the invoice", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "invoice.txt", res[0].Filename)

	_, err = f.svc.Search(context.Background(), "  ", 5)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestListAndGet(t *testing.T) {
	f := newDocumentFixture(t)
	f.upload(t, "a.txt", "first")
	f.upload(t, "b.txt", "second")

	list, err := f.svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, 20, list.Limit)
	require.Len(t, list.Documents, 2)
	assert.Equal(t, "b.txt", list.Documents[0].Filename)

	doc, err := f.svc.Get(context.Background(), list.Documents[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.Filename)

	_, err = f.svc.Get(context.Background(), 999)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hé", TruncateRunes("héllo", 2))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 10))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 0))
}
