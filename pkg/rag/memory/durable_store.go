package memory

import (
	"context"
	"time"

	"owlynn-be/internal/entity"
	"owlynn-be/internal/mapper"
	"owlynn-be/internal/repository/scope"
	"owlynn-be/internal/repository/specification"
	"owlynn-be/internal/repository/unitofwork"
	"owlynn-be/pkg/store"
)

// GormDurableStore adapts the repository layer to DurableStore.
type GormDurableStore struct {
	uowFactory unitofwork.RepositoryFactory
	docMapper  *mapper.DocumentMapper
}

func NewGormDurableStore(uowFactory unitofwork.RepositoryFactory) *GormDurableStore {
	return &GormDurableStore{
		uowFactory: uowFactory,
		docMapper:  mapper.NewDocumentMapper(),
	}
}

func (s *GormDurableStore) AppendConversation(ctx context.Context, sessionID string, conv store.Conversation, at time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ConversationRepository().Create(ctx, &entity.Conversation{
		SessionId: sessionID,
		Timestamp: at,
		Messages:  conv.Messages,
		Metadata:  conv.Metadata,
	})
}

func (s *GormDurableStore) LatestConversation(ctx context.Context, sessionID string) (*store.ConversationRecord, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	c, err := uow.ConversationRepository().FindLatest(ctx, sessionID)
	if err != nil || c == nil {
		return nil, err
	}
	return &store.ConversationRecord{
		ID:        c.Id,
		SessionID: c.SessionId,
		Timestamp: c.Timestamp,
		Messages:  c.Messages,
		Metadata:  c.Metadata,
	}, nil
}

func (s *GormDurableStore) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ConversationRepository().DeleteOlderThan(ctx, cutoff)
}

func (s *GormDurableStore) CreateDocument(ctx context.Context, doc *store.Document) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	e := &entity.Document{
		Filename:  doc.Filename,
		FileType:  doc.FileType,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt,
	}
	if err := uow.DocumentRepository().Create(ctx, e); err != nil {
		return err
	}
	*doc = s.docMapper.ToStore(e)
	return nil
}

func (s *GormDurableStore) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	e, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil || e == nil {
		return nil, err
	}
	doc := s.docMapper.ToStore(e)
	return &doc, nil
}

func (s *GormDurableStore) FindDocuments(ctx context.Context, ids []int64) ([]store.Document, error) {
	if len(ids) == 0 {
		return []store.Document{}, nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	entities, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, err
	}
	return s.toStore(entities), nil
}

// ListDocuments counts and pages inside one transaction so total matches the
// page it is reported with.
func (s *GormDurableStore) ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, 0, err
	}
	defer uow.Rollback()
	repo := uow.DocumentRepository()

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	entities, err := repo.FindAll(ctx,
		specification.Scoped{Fn: scope.OrderByCreatedDesc},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, 0, err
	}
	if err := uow.Commit(); err != nil {
		return nil, 0, err
	}
	return s.toStore(entities), total, nil
}

func (s *GormDurableStore) toStore(entities []*entity.Document) []store.Document {
	out := make([]store.Document, len(entities))
	for i, e := range entities {
		out[i] = s.docMapper.ToStore(e)
	}
	return out
}
