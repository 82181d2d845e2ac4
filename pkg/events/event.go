package events

import (
	"context"
	"time"
)

const (
	TypeDocumentUploaded    = "DOCUMENT_UPLOADED"
	TypeConversationsPurged = "CONVERSATIONS_PURGED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher sends events to whatever bus is configured. Services hold a
// Publisher that may be nil when events are disabled.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func DocumentUploaded(id int64, filename, fileType string, size int64, indexed bool) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentUploaded,
		Data: map[string]interface{}{
			"document_id": id,
			"filename":    filename,
			"file_type":   fileType,
			"file_size":   size,
			"indexed":     indexed,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func ConversationsPurged(deleted int64, maxAgeDays int) BaseEvent {
	return BaseEvent{
		Type: TypeConversationsPurged,
		Data: map[string]interface{}{
			"deleted":      deleted,
			"max_age_days": maxAgeDays,
		},
		OccurredAt: time.Now().UTC(),
	}
}
