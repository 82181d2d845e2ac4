package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"owlynn-be/internal/config"
	"owlynn-be/internal/dto"
	"owlynn-be/internal/observability"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/embedding"
	"owlynn-be/pkg/events"
	"owlynn-be/pkg/rag/memory"
	"owlynn-be/pkg/store"
)

const (
	defaultSearchLimit = 5
	defaultListLimit   = 20
)

// UploadInput is one file received by the API. Size is the size the client
// declared; the stream is still capped while it is written.
type UploadInput struct {
	Filename string
	Size     int64
	Reader   io.Reader
	Metadata store.Metadata
}

type IDocumentService interface {
	Upload(ctx context.Context, in UploadInput) (*dto.UploadResponse, error)
	Search(ctx context.Context, query string, limit int) ([]dto.DocumentResponse, error)
	List(ctx context.Context, limit, offset int) (*dto.DocumentListResponse, error)
	Get(ctx context.Context, id int64) (*dto.DocumentResponse, error)
}

// Converter turns a stored upload into text and metadata.
type Converter interface {
	Convert(ctx context.Context, path, ext string) (string, store.Metadata, error)
}

type documentService struct {
	memory           *memory.Manager
	converter        Converter
	embedder         embedding.EmbeddingProvider
	publisherService IPublisherService
	eventPublisher   events.Publisher
	files            config.FilesConfig
	embedMaxChars    int
	logger           logger.ILogger
}

func NewDocumentService(
	mem *memory.Manager,
	converter Converter,
	embedder embedding.EmbeddingProvider,
	publisherService IPublisherService,
	eventPublisher events.Publisher,
	files config.FilesConfig,
	embedMaxChars int,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		memory:           mem,
		converter:        converter,
		embedder:         embedder,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		files:            files,
		embedMaxChars:    embedMaxChars,
		logger:           log,
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*dto.UploadResponse, error) {
	name := filepath.Base(in.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	category := s.files.Category(ext)

	res, err := s.upload(ctx, in, name, ext, category)
	if err != nil {
		observability.RecordUpload(category, strings.ToLower(string(apperror.KindOf(err))))
		return nil, err
	}
	observability.RecordUpload(category, "ok")
	return res, nil
}

func (s *documentService) upload(ctx context.Context, in UploadInput, name, ext, category string) (*dto.UploadResponse, error) {
	if in.Filename == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperror.Validation("file name is required")
	}
	if category == "" {
		return nil, apperror.UnsupportedFileType(ext)
	}
	if in.Size > s.files.MaxFileSize {
		return nil, apperror.FileTooLarge(in.Size, s.files.MaxFileSize)
	}

	path, cleanup, err := s.save(in.Reader, name)
	if err != nil {
		return nil, err
	}
	kept := false
	defer func() {
		if !kept {
			cleanup()
		}
	}()

	content, meta, err := s.converter.Convert(ctx, path, ext)
	if err != nil {
		return nil, err
	}
	meta = in.Metadata.Merge(meta)

	emb := s.embed(ctx, content)
	stored, err := s.memory.StoreDocument(ctx, content, meta, emb)
	if err != nil {
		return nil, err
	}
	kept = true

	if !stored.Indexed {
		reason := "embedding unavailable"
		if emb != nil {
			reason = "vector write failed"
		}
		if err := s.publisherService.PublishReindex(ctx, stored.ID, reason); err != nil {
			s.logger.Warn("Upload", "Failed to queue reindex", map[string]interface{}{
				"document_id": stored.ID,
				"error":       err.Error(),
			})
		}
	}

	if s.eventPublisher != nil {
		size, _ := meta[store.MetaFileSize].(int64)
		if err := s.eventPublisher.Publish(ctx, events.DocumentUploaded(stored.ID, name, ext, size, stored.Indexed)); err != nil {
			s.logger.Warn("Upload", "Failed to publish event", map[string]interface{}{
				"document_id": stored.ID,
				"error":       err.Error(),
			})
		}
	}

	s.logger.Info("Upload", "Document stored", map[string]interface{}{
		"document_id": stored.ID,
		"filename":    name,
		"category":    category,
		"indexed":     stored.Indexed,
	})

	return &dto.UploadResponse{
		ID:       stored.ID,
		Filename: name,
		Content:  content,
		Metadata: meta,
		Indexed:  stored.Indexed,
	}, nil
}

// save streams r into a fresh directory under UPLOAD_DIR and refuses to
// write more than MAX_FILE_SIZE bytes. cleanup removes everything save created.
func (s *documentService) save(r io.Reader, name string) (string, func(), error) {
	if err := os.MkdirAll(s.files.UploadDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create upload dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.files.UploadDir, "upload-")
	if err != nil {
		return "", nil, fmt.Errorf("create upload dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create upload file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.files.MaxFileSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write upload file: %w", err)
	}
	if n > s.files.MaxFileSize {
		cleanup()
		return "", nil, apperror.FileTooLarge(n, s.files.MaxFileSize)
	}
	return path, cleanup, nil
}

// embed returns nil when the provider fails; the document is then stored
// without a vector entry and reindexed in the background.
func (s *documentService) embed(ctx context.Context, content string) []float32 {
	if s.embedder == nil || strings.TrimSpace(content) == "" {
		return nil
	}
	emb, err := s.embedder.Generate(ctx, TruncateRunes(content, s.embedMaxChars), embedding.TaskRetrievalDocument)
	if err != nil {
		s.logger.Warn("Upload", "Embedding failed, document will be reindexed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return emb
}

func (s *documentService) Search(ctx context.Context, query string, limit int) ([]dto.DocumentResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	docs, err := s.memory.SearchDocuments(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return dto.ToDocumentResponses(docs), nil
}

func (s *documentService) List(ctx context.Context, limit, offset int) (*dto.DocumentListResponse, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	docs, total, err := s.memory.ListDocuments(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.DocumentListResponse{
		Documents: dto.ToDocumentResponses(docs),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*dto.DocumentResponse, error) {
	doc, err := s.memory.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NotFound(fmt.Sprintf("document not found: %d", id))
	}
	res := dto.ToDocumentResponse(*doc)
	return &res, nil
}

// TruncateRunes cuts s to at most n runes. n <= 0 leaves s unchanged.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
