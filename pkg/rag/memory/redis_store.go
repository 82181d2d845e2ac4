package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"owlynn-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

// RedisFastStore keeps one JSON document per session under conv:{session_id}.
type RedisFastStore struct {
	client redis.UniversalClient
}

func NewRedisFastStore(client redis.UniversalClient) *RedisFastStore {
	return &RedisFastStore{client: client}
}

func (s *RedisFastStore) Save(ctx context.Context, sessionID string, conv store.Conversation, ttl time.Duration) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return s.client.Set(ctx, FastKey(sessionID), data, ttl).Err()
}

func (s *RedisFastStore) Load(ctx context.Context, sessionID string) (*store.Conversation, error) {
	data, err := s.client.Get(ctx, FastKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var conv store.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", sessionID, err)
	}
	if conv.Messages == nil {
		conv.Messages = []store.Message{}
	}
	return &conv, nil
}

// Delete drops the cached copy. The durable snapshot is untouched.
func (s *RedisFastStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, FastKey(sessionID)).Err()
}
