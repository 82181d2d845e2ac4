package service

import (
	"context"
	"encoding/json"

	"owlynn-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
	PublishReindex(ctx context.Context, documentID int64, reason string) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
}

func NewPublisherService(publisher message.Publisher, topicName string) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
	}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

func (ps *publisherService) PublishReindex(ctx context.Context, documentID int64, reason string) error {
	payload, err := json.Marshal(dto.ReindexDocumentMessage{DocumentID: documentID, Reason: reason})
	if err != nil {
		return err
	}
	return ps.Publish(ctx, payload)
}
