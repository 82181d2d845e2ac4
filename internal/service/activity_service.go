package service

import (
	"context"

	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/events"
	pktNats "owlynn-be/pkg/nats"
)

type IActivityService interface {
	// Start records bus events until ctx is done.
	Start(ctx context.Context) error
}

// ActivityService writes every domain event from the bus to the activity
// log, so uploads and purges from any instance end up in one place.
type ActivityService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewActivityService(sub *pktNats.Subscriber, log logger.ILogger) *ActivityService {
	return &ActivityService{
		subscriber: sub,
		logger:     log,
	}
}

func (s *ActivityService) Start(ctx context.Context) error {
	cc, err := s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", "owlynn-activity", s.handleEvent)
	if err != nil {
		return err
	}
	s.logger.Info("ActivityService", "Listening to events.>", nil)

	<-ctx.Done()
	cc.Stop()
	return nil
}

func (s *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	s.logger.Info("ActivityService", "Event received", map[string]interface{}{
		"type":        event.EventType(),
		"occurred_at": event.Timestamp(),
		"payload":     event.Payload(),
	})
	return nil
}
