package entity

import (
	"time"

	"owlynn-be/pkg/store"
)

type Document struct {
	Id        int64
	Filename  string
	FileType  string
	Content   string
	Metadata  store.Metadata
	CreatedAt time.Time
}

// VectorEntry is a row of the pgvector-backed similarity index.
type VectorEntry struct {
	Id         string
	Collection string
	Embedding  []float32
	Metadata   store.Metadata
	Document   string
	CreatedAt  time.Time
}
