package mapper

import (
	"owlynn-be/internal/entity"
	"owlynn-be/internal/model"
	"owlynn-be/pkg/store"

	"github.com/pgvector/pgvector-go"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	return &entity.Document{
		Id:        d.Id,
		Filename:  d.Filename,
		FileType:  d.FileType,
		Content:   d.Content,
		Metadata:  toMetadata(d.Metadata),
		CreatedAt: d.CreatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	return &model.Document{
		Id:        d.Id,
		Filename:  d.Filename,
		FileType:  d.FileType,
		Content:   d.Content,
		Metadata:  toJSONMap(d.Metadata),
		CreatedAt: d.CreatedAt,
	}
}

// ToStore converts the persisted entity to the shared document type returned
// by the memory layer.
func (m *DocumentMapper) ToStore(d *entity.Document) store.Document {
	return store.Document{
		ID:        d.Id,
		Filename:  d.Filename,
		FileType:  d.FileType,
		Content:   d.Content,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
}

type VectorEntryMapper struct{}

func NewVectorEntryMapper() *VectorEntryMapper {
	return &VectorEntryMapper{}
}

func (m *VectorEntryMapper) ToEntity(v *model.VectorEntry) *entity.VectorEntry {
	if v == nil {
		return nil
	}
	return &entity.VectorEntry{
		Id:         v.Id,
		Collection: v.Collection,
		Embedding:  v.Embedding.Slice(),
		Metadata:   toMetadata(v.Metadata),
		Document:   v.Document,
		CreatedAt:  v.CreatedAt,
	}
}

func (m *VectorEntryMapper) ToModel(v *entity.VectorEntry) *model.VectorEntry {
	if v == nil {
		return nil
	}
	return &model.VectorEntry{
		Id:         v.Id,
		Collection: v.Collection,
		Embedding:  pgvector.NewVector(v.Embedding),
		Metadata:   toJSONMap(v.Metadata),
		Document:   v.Document,
		CreatedAt:  v.CreatedAt,
	}
}
