package implementation

import (
	"context"
	"errors"
	"time"

	"owlynn-be/internal/entity"
	"owlynn-be/internal/mapper"
	"owlynn-be/internal/model"
	"owlynn-be/internal/repository/contract"
	"owlynn-be/internal/repository/scope"
	"owlynn-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *ConversationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Create appends a snapshot. Rows are never updated in place.
func (r *ConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.Conversation) error {
	m := r.mapper.ToModel(conversation)
	m.Id = 0
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conversation = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConversationRepositoryImpl) FindLatest(ctx context.Context, sessionId string) (*entity.Conversation, error) {
	var m model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.Scoped{Fn: scope.LatestSnapshotFirst},
	)
	err := query.First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ConversationRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := specification.OlderThan{Field: "timestamp", Cutoff: cutoff}.Apply(r.db.WithContext(ctx))
	res := query.Delete(&model.Conversation{})
	return res.RowsAffected, res.Error
}
