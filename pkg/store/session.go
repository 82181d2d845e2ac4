package store

import (
	"maps"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Declared metadata keys. Metadata stays an open map, these are the keys the
// pipeline itself reads or writes.
const (
	MetaIntent             = "intent"
	MetaHandledBy          = "handled_by"
	MetaStandaloneQuestion = "standalone_question"
	MetaSources            = "sources"
	MetaFallback           = "fallback"
	MetaSessionCreated     = "session_created"
	MetaFilename           = "filename"
	MetaFileType           = "file_type"
	MetaFileSize           = "file_size"
	MetaCategory           = "category"
	MetaChunks             = "chunks"
	MetaCaption            = "caption"
	MetaDimensions         = "dimensions"
	MetaFormat             = "format"
	MetaMode               = "mode"
)

// Metadata is a free-form string keyed map attached to messages, conversations
// and documents.
type Metadata map[string]any

// Merge returns a new map holding m overlaid with other. Keys in other win.
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	maps.Copy(out, m)
	maps.Copy(out, other)
	return out
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// Message is one turn of a conversation. Messages are never mutated after
// they are appended.
type Message struct {
	Role     Role     `json:"role"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Metadata: Metadata{}}
}

// Conversation is the payload persisted in both memory tiers.
type Conversation struct {
	Messages []Message `json:"messages"`
	Metadata Metadata  `json:"metadata"`
}

// ConversationRecord is one durable snapshot row.
type ConversationRecord struct {
	ID        int64
	SessionID string
	Timestamp time.Time
	Messages  []Message
	Metadata  Metadata
}

// Document is an ingested file after conversion.
type Document struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"file_type"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// VectorEntry is the secondary index record for a document. ID equals the
// decimal string of the document id.
type VectorEntry struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
	Text      string
}

// VectorHit is a nearest-neighbour result, ordered by the index.
type VectorHit struct {
	ID       string
	Score    float32
	Metadata Metadata
	Text     string
}
