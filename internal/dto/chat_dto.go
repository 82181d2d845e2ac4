package dto

import "owlynn-be/pkg/store"

type ChatRequest struct {
	Message   string         `json:"message" validate:"required"`
	SessionID string         `json:"session_id,omitempty" validate:"omitempty,max=128"`
	Context   map[string]any `json:"context,omitempty"`
}

type ChatResponse struct {
	SessionID string       `json:"session_id"`
	Response  string       `json:"response"`
	Metadata  ChatMetadata `json:"metadata"`
}

type ChatMetadata struct {
	Intent             string   `json:"intent"`
	HandledBy          string   `json:"handled_by,omitempty"`
	StandaloneQuestion string   `json:"standalone_question,omitempty"`
	Sources            []string `json:"sources"`
	Fallback           bool     `json:"fallback"`
	SessionCreated     bool     `json:"session_created"`
	MessageCount       int      `json:"message_count"`
}

type ConversationResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []store.Message `json:"messages"`
	Metadata  store.Metadata  `json:"metadata"`
}
