package service

import (
	"context"

	"owlynn-be/internal/observability"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/events"

	"github.com/robfig/cron/v3"
)

type ICleanupService interface {
	RunOnce(ctx context.Context, maxAgeDays int) (int64, error)
	// Start runs the purge on schedule and blocks until ctx is done.
	Start(ctx context.Context) error
}

// ConversationPurger deletes durable conversation snapshots by age.
type ConversationPurger interface {
	CleanupOldConversations(ctx context.Context, maxAgeDays int) (int64, error)
}

type cleanupService struct {
	purger         ConversationPurger
	eventPublisher events.Publisher
	schedule       string
	maxAgeDays     int
	logger         logger.ILogger
}

func NewCleanupService(purger ConversationPurger, eventPublisher events.Publisher, schedule string, maxAgeDays int, log logger.ILogger) ICleanupService {
	return &cleanupService{
		purger:         purger,
		eventPublisher: eventPublisher,
		schedule:       schedule,
		maxAgeDays:     maxAgeDays,
		logger:         log,
	}
}

func (s *cleanupService) RunOnce(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = s.maxAgeDays
	}
	n, err := s.purger.CleanupOldConversations(ctx, maxAgeDays)
	if err != nil {
		return 0, err
	}
	observability.RecordConversationsPurged(n)

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.ConversationsPurged(n, maxAgeDays)); err != nil {
			s.logger.Warn("Cleanup", "Failed to publish event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return n, nil
}

func (s *cleanupService) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx, s.maxAgeDays); err != nil {
			s.logger.Error("Cleanup", "Scheduled cleanup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	s.logger.Info("Cleanup", "Cleanup scheduled", map[string]interface{}{
		"schedule":     s.schedule,
		"max_age_days": s.maxAgeDays,
	})

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
