package implementation

import (
	"context"

	"owlynn-be/internal/entity"
	"owlynn-be/internal/mapper"
	"owlynn-be/internal/model"
	"owlynn-be/internal/repository/contract"
	"owlynn-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.VectorEntryMapper
}

func NewVectorEntryRepository(db *gorm.DB) contract.VectorEntryRepository {
	return &VectorEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewVectorEntryMapper(),
	}
}

func (r *VectorEntryRepositoryImpl) Upsert(ctx context.Context, entry *entity.VectorEntry) error {
	m := r.mapper.ToModel(entry)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "collection"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "metadata", "document"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*entry = *r.mapper.ToEntity(m)
	return nil
}

// SearchSimilar ranks entries by cosine distance. Similarity is reported as
// 1 - distance.
func (r *VectorEntryRepositoryImpl) SearchSimilar(ctx context.Context, collection string, embedding []float32, limit int) ([]*contract.ScoredVectorEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.VectorEntry
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := specification.ByCollection{Collection: collection}.Apply(r.db.WithContext(ctx))
	err := query.
		Table("vector_entries").
		Select("vector_entries.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredVectorEntry, len(results))
	for i := range results {
		scored[i] = &contract.ScoredVectorEntry{
			Entry:      r.mapper.ToEntity(&results[i].VectorEntry),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
