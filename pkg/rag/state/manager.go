package state

import (
	"owlynn-be/pkg/store"
)

// ConversationState is the per-request working record threaded through
// intent dispatch and the orchestrator. It is never persisted.
type ConversationState struct {
	Messages      []store.Message
	CurrentIntent string
	Metadata      store.Metadata
	Error         string
	Context       store.Metadata
}

// Update is a partial state change. Nil fields leave the state untouched.
type Update struct {
	Messages      []store.Message
	CurrentIntent *string
	Metadata      store.Metadata
	Error         *string
	Context       store.Metadata
}

// New builds the initial state for one incoming user message.
func New(text string, context store.Metadata) *ConversationState {
	return &ConversationState{
		Messages: []store.Message{store.NewMessage(store.RoleUser, text)},
		Metadata: store.Metadata{},
		Context:  context.Clone(),
	}
}

// Apply merges an update into the state:
// messages append, intent and error are last-write-wins, metadata and context
// merge key-wise with the update winning.
func (s *ConversationState) Apply(u Update) {
	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, u.Messages...)
	}
	if u.CurrentIntent != nil {
		s.CurrentIntent = *u.CurrentIntent
	}
	if u.Metadata != nil {
		s.Metadata = s.Metadata.Merge(u.Metadata)
	}
	if u.Error != nil {
		s.Error = *u.Error
	}
	if u.Context != nil {
		s.Context = s.Context.Merge(u.Context)
	}
}

// Failed reports whether an error has been recorded.
func (s *ConversationState) Failed() bool {
	return s.Error != ""
}

// LastUserMessage returns the most recent user message, if any.
func (s *ConversationState) LastUserMessage() (store.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == store.RoleUser {
			return s.Messages[i], true
		}
	}
	return store.Message{}, false
}

// Ptr is a small helper for building updates.
func Ptr[T any](v T) *T {
	return &v
}
