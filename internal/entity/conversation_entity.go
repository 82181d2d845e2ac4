package entity

import (
	"time"

	"owlynn-be/pkg/store"
)

// Conversation is one append-only snapshot of a session's full history.
type Conversation struct {
	Id        int64
	SessionId string
	Timestamp time.Time
	Messages  []store.Message
	Metadata  store.Metadata
}
