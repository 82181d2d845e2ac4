package dto

import (
	"time"

	"owlynn-be/pkg/store"
)

type UploadResponse struct {
	ID       int64          `json:"id"`
	Filename string         `json:"filename"`
	Content  string         `json:"content"`
	Metadata store.Metadata `json:"metadata"`
	Indexed  bool           `json:"indexed"`
}

type SearchRequest struct {
	Query string `query:"query" validate:"required"`
	Limit int    `query:"limit" validate:"min=1,max=50"`
}

type ListDocumentsRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

type DocumentResponse struct {
	ID        int64          `json:"id"`
	Filename  string         `json:"filename"`
	FileType  string         `json:"file_type"`
	Content   string         `json:"content"`
	Metadata  store.Metadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func ToDocumentResponse(d store.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID,
		Filename:  d.Filename,
		FileType:  d.FileType,
		Content:   d.Content,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
}

func ToDocumentResponses(docs []store.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentResponse(d))
	}
	return out
}

// ReindexDocumentMessage asks the background consumer to (re)write the vector
// entry of a stored document.
type ReindexDocumentMessage struct {
	DocumentID int64  `json:"document_id"`
	Reason     string `json:"reason,omitempty"`
}
