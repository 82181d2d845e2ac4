package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"owlynn-be/internal/dto"
	"owlynn-be/internal/observability"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/embedding"
	"owlynn-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"
)

type IConsumerService interface {
	// Consume blocks, processing reindex messages until ctx is done.
	Consume(ctx context.Context) error
}

// DocumentIndexer is the part of the memory manager the consumer writes to.
type DocumentIndexer interface {
	GetDocument(ctx context.Context, id int64) (*store.Document, error)
	IndexDocument(ctx context.Context, id int64, embedding []float32) error
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	indexer           DocumentIndexer
	embeddingProvider embedding.EmbeddingProvider
	embedMaxChars     int
	maxTries          uint
	maxDeliveries     int
	logger            logger.ILogger

	mu         sync.Mutex
	deliveries map[string]int
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	indexer DocumentIndexer,
	embeddingProvider embedding.EmbeddingProvider,
	embedMaxChars int,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		indexer:           indexer,
		embeddingProvider: embeddingProvider,
		embedMaxChars:     embedMaxChars,
		maxTries:          3,
		maxDeliveries:     5,
		logger:            log,
		deliveries:        make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}
	cs.logger.Info("Consumer", "Listening for reindex requests", map[string]interface{}{
		"topic": cs.topicName,
	})

	for msg := range messages {
		cs.processMessage(ctx, msg)
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ReindexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Malformed payloads never succeed.
		msg.Ack()
		return
	}

	fields := map[string]interface{}{
		"document_id": payload.DocumentID,
		"reason":      payload.Reason,
	}

	err := cs.reindex(ctx, payload.DocumentID)
	switch {
	case err == nil:
		cs.forget(msg.UUID)
		observability.RecordReindex("ok")
		cs.logger.Info("Consumer", "Document reindexed", fields)
		msg.Ack()
	case apperror.Is(err, apperror.KindNotFound) || apperror.Is(err, apperror.KindValidation):
		cs.forget(msg.UUID)
		observability.RecordReindex("dropped")
		fields["error"] = err.Error()
		cs.logger.Warn("Consumer", "Reindex dropped", fields)
		msg.Ack()
	default:
		fields["error"] = err.Error()
		delivery := cs.recordDelivery(msg.UUID)
		fields["delivery"] = delivery
		if delivery >= cs.maxDeliveries {
			cs.forget(msg.UUID)
			observability.RecordReindex("gave_up")
			cs.logger.Error("Consumer", "Reindex failed on every delivery, giving up", fields)
			msg.Ack()
			return
		}
		observability.RecordReindex("retry")
		cs.logger.Error("Consumer", "Reindex failed, message will be redelivered", fields)
		msg.Nack()
	}
}

// recordDelivery counts failed deliveries per message UUID. Redelivered
// copies keep the UUID of the original.
func (cs *consumerService) recordDelivery(id string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.deliveries[id]++
	return cs.deliveries[id]
}

func (cs *consumerService) forget(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.deliveries, id)
}

// reindex embeds the stored content and writes the vector entry. Transient
// failures are retried a few times before the message is handed back.
func (cs *consumerService) reindex(ctx context.Context, id int64) error {
	doc, err := cs.indexer.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperror.NotFound("document not found")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		emb, err := cs.embeddingProvider.Generate(ctx, TruncateRunes(doc.Content, cs.embedMaxChars), embedding.TaskRetrievalDocument)
		if err != nil {
			return struct{}{}, err
		}
		if err := cs.indexer.IndexDocument(ctx, id, emb); err != nil {
			if apperror.Is(err, apperror.KindValidation) || apperror.Is(err, apperror.KindNotFound) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(cs.maxTries))
	return err
}
