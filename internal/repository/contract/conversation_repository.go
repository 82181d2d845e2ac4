package contract

import (
	"context"
	"time"

	"owlynn-be/internal/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	FindLatest(ctx context.Context, sessionId string) (*entity.Conversation, error)
	// DeleteOlderThan hard-deletes snapshots with timestamp < cutoff and
	// returns how many rows went away.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
