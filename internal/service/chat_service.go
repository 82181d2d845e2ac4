package service

import (
	"context"
	"time"

	"owlynn-be/internal/dto"
	"owlynn-be/internal/observability"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/rag/executor"
	"owlynn-be/pkg/rag/intent"
	"owlynn-be/pkg/rag/state"
	"owlynn-be/pkg/store"
)

type IChatService interface {
	SendChat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetHistory(ctx context.Context, sessionID string) (*dto.ConversationResponse, error)
}

// TurnExecutor runs one orchestrated chat turn.
type TurnExecutor interface {
	Execute(ctx context.Context, req executor.TurnRequest) (*executor.TurnResult, error)
}

// ConversationReader loads a stored conversation.
type ConversationReader interface {
	GetConversation(ctx context.Context, sessionID string) (*store.Conversation, error)
}

type chatService struct {
	dispatcher *intent.Dispatcher
	executor   TurnExecutor
	history    ConversationReader
	logger     logger.ILogger
}

func NewChatService(dispatcher *intent.Dispatcher, exec TurnExecutor, history ConversationReader, log logger.ILogger) IChatService {
	return &chatService{
		dispatcher: dispatcher,
		executor:   exec,
		history:    history,
		logger:     log,
	}
}

// SendChat classifies the message once, then runs the orchestrated turn.
// The intent label is informational: every message is answered.
func (s *chatService) SendChat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	start := time.Now()

	st := state.New(req.Message, store.Metadata(req.Context))
	if err := s.dispatcher.Run(ctx, st); err != nil {
		s.logger.Warn("ChatService", "Intent dispatch failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	label, _ := st.Metadata[store.MetaIntent].(string)
	if label == "" {
		label = intent.LabelErrorHandling
	}
	handledBy, _ := st.Context[store.MetaHandledBy].(string)
	observability.RecordIntent(label)

	res, err := s.executor.Execute(ctx, executor.TurnRequest{
		SessionID: req.SessionID,
		Text:      req.Message,
	})
	if err != nil {
		observability.RecordChatTurn("error", time.Since(start))
		return nil, err
	}

	outcome := "ok"
	if res.Fallback {
		outcome = "fallback"
	}
	observability.RecordChatTurn(outcome, time.Since(start))

	sources := make([]string, 0, len(res.Documents))
	for _, d := range res.Documents {
		sources = append(sources, d.Filename)
	}

	return &dto.ChatResponse{
		SessionID: res.SessionID,
		Response:  res.Reply,
		Metadata: dto.ChatMetadata{
			Intent:             label,
			HandledBy:          handledBy,
			StandaloneQuestion: res.StandaloneQuestion,
			Sources:            sources,
			Fallback:           res.Fallback,
			SessionCreated:     res.SessionCreated,
			MessageCount:       len(res.History),
		},
	}, nil
}

func (s *chatService) GetHistory(ctx context.Context, sessionID string) (*dto.ConversationResponse, error) {
	if sessionID == "" {
		return nil, apperror.Validation("session_id is required")
	}
	conv, err := s.history.GetConversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperror.NotFound("conversation not found: " + sessionID)
	}
	return &dto.ConversationResponse{
		SessionID: sessionID,
		Messages:  conv.Messages,
		Metadata:  conv.Metadata,
	}, nil
}
