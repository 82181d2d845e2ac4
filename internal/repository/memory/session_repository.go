package memory

import (
	"context"
	"time"

	"owlynn-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ConversationCache is an in-process fast tier for single-node setups
// without Redis. Entries expire with the ttl given on Save.
type ConversationCache struct {
	cache *cache.Cache
}

func NewConversationCache(defaultTTL time.Duration) *ConversationCache {
	// Purge expired items every 10 minutes
	c := cache.New(defaultTTL, 10*time.Minute)
	return &ConversationCache{
		cache: c,
	}
}

func (r *ConversationCache) Save(ctx context.Context, sessionID string, conv store.Conversation, ttl time.Duration) error {
	snapshot := store.Conversation{
		Messages: append([]store.Message(nil), conv.Messages...),
		Metadata: conv.Metadata.Clone(),
	}
	r.cache.Set(sessionID, snapshot, ttl)
	return nil
}

func (r *ConversationCache) Load(ctx context.Context, sessionID string) (*store.Conversation, error) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, nil
	}
	conv := x.(store.Conversation)
	return &conv, nil
}

func (r *ConversationCache) Delete(ctx context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}
