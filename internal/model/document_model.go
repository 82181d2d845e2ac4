package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type Document struct {
	Id        int64             `gorm:"primaryKey;autoIncrement"`
	Filename  string            `gorm:"type:varchar(255);not null"`
	FileType  string            `gorm:"type:varchar(32);not null;index"`
	Content   string            `gorm:"type:text"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index"`
}

func (Document) TableName() string {
	return "documents"
}

// VectorEntry has no fixed dimension so any embedding model can be plugged in.
type VectorEntry struct {
	Id         string            `gorm:"type:varchar(64);primaryKey"`
	Collection string            `gorm:"type:varchar(64);primaryKey"`
	Embedding  pgvector.Vector   `gorm:"type:vector"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	Document   string            `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"autoCreateTime"`
}

func (VectorEntry) TableName() string {
	return "vector_entries"
}
