package executor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"owlynn-be/internal/constant"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/llm"
	"owlynn-be/pkg/rag/prompt"
	"owlynn-be/pkg/store"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const moduleName = "Executor"

var tracer = otel.Tracer("owlynn-be/pkg/rag/executor")

// Memory is the slice of the memory manager the pipeline needs.
type Memory interface {
	GetConversation(ctx context.Context, sessionID string) (*store.Conversation, error)
	SearchDocuments(ctx context.Context, query string, limit int) ([]store.Document, error)
	StoreConversation(ctx context.Context, sessionID string, messages []store.Message, metadata store.Metadata) error
}

type Config struct {
	LLMTimeout      time.Duration
	StoreTimeout    time.Duration
	ReadRetries     int
	RetrievalLimit  int
	ContextMaxChars int
}

func (c Config) withDefaults() Config {
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 120 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
	if c.ReadRetries < 0 {
		c.ReadRetries = 0
	}
	if c.RetrievalLimit <= 0 {
		c.RetrievalLimit = 5
	}
	return c
}

// TurnRequest is one user message. An empty SessionID starts a new session.
// Routing labels and request context stay with the caller and are never
// persisted.
type TurnRequest struct {
	SessionID string
	Text      string
}

// TurnResult describes a completed turn.
type TurnResult struct {
	SessionID          string
	Reply              string
	StandaloneQuestion string
	Documents          []store.Document
	Fallback           bool
	SessionCreated     bool
	History            []store.Message
}

// PipelineExecutor runs one chat turn: history, rewrite, retrieval,
// generation, persistence. Every step waits on the one before it.
type PipelineExecutor struct {
	llm    llm.LLMProvider
	memory Memory
	cfg    Config
	logger logger.ILogger
	newID  func() string
}

func NewPipelineExecutor(provider llm.LLMProvider, memory Memory, cfg Config, log logger.ILogger) *PipelineExecutor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &PipelineExecutor{
		llm:    provider,
		memory: memory,
		cfg:    cfg.withDefaults(),
		logger: log,
		newID:  uuid.NewString,
	}
}

// Execute runs the turn. Store failures are returned; model failures end in
// the fallback reply.
func (p *PipelineExecutor) Execute(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.Text == "" {
		return nil, apperror.Validation("message must not be empty")
	}

	ctx, span := tracer.Start(ctx, "chat.turn")
	defer span.End()

	res := &TurnResult{SessionID: req.SessionID}
	if res.SessionID == "" {
		res.SessionID = p.newID()
		res.SessionCreated = true
	}
	span.SetAttributes(attribute.String("session.id", res.SessionID))

	// History
	conv, err := p.loadConversation(ctx, res.SessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	var history []store.Message
	convMeta := store.Metadata{}
	if conv != nil {
		history = conv.Messages
		convMeta = conv.Metadata.Clone()
	}

	// Standalone question
	question := req.Text
	if len(history) > 0 {
		question = p.rewrite(ctx, history, req.Text)
	}
	res.StandaloneQuestion = question

	// Retrieval
	docs, err := p.retrieve(ctx, question)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.Documents = docs

	// Generation
	built := prompt.NewContextualBuilder(docs, question, p.cfg.ContextMaxChars).Build()
	reply, err := p.generate(ctx, prompt.AnswerMessages(history, built))
	if err != nil || reply == "" {
		fields := map[string]interface{}{"session_id": res.SessionID}
		if err != nil {
			fields["error"] = err.Error()
		}
		p.logger.Warn(moduleName, "Generation produced no usable output, using fallback", fields)
		reply = constant.FallbackReply
		res.Fallback = true
	}
	res.Reply = reply

	// Persist
	userMsg := store.NewMessage(store.RoleUser, req.Text)
	assistantMsg := store.NewMessage(store.RoleAssistant, reply)
	assistantMsg.Metadata[store.MetaStandaloneQuestion] = question
	assistantMsg.Metadata[store.MetaSources] = sourceIDs(docs)
	if res.Fallback {
		assistantMsg.Metadata[store.MetaFallback] = true
	}

	updated := make([]store.Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated, userMsg, assistantMsg)

	if err := p.persist(ctx, res.SessionID, updated, convMeta); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.History = updated

	span.SetAttributes(
		attribute.Int("history.length", len(history)),
		attribute.Int("documents.count", len(docs)),
		attribute.Bool("reply.fallback", res.Fallback),
	)

	p.logger.Info(moduleName, "Turn completed", map[string]interface{}{
		"session_id": res.SessionID,
		"documents":  len(docs),
		"rewritten":  question != req.Text,
		"fallback":   res.Fallback,
		"messages":   len(updated),
	})
	return res, nil
}

func (p *PipelineExecutor) loadConversation(ctx context.Context, sessionID string) (*store.Conversation, error) {
	return retryRead(ctx, p, "conversation load", func(ctx context.Context) (*store.Conversation, error) {
		return p.memory.GetConversation(ctx, sessionID)
	})
}

func (p *PipelineExecutor) retrieve(ctx context.Context, question string) ([]store.Document, error) {
	return retryRead(ctx, p, "document search", func(ctx context.Context) ([]store.Document, error) {
		return p.memory.SearchDocuments(ctx, question, p.cfg.RetrievalLimit)
	})
}

func (p *PipelineExecutor) persist(ctx context.Context, sessionID string, messages []store.Message, meta store.Metadata) error {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	return p.memory.StoreConversation(callCtx, sessionID, messages, meta)
}

// rewrite asks the model for a standalone version of question. Any failure
// keeps the question as typed.
func (p *PipelineExecutor) rewrite(ctx context.Context, history []store.Message, question string) string {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	out, err := p.llm.Generate(callCtx, prompt.StandaloneQuestion(history, question))
	if err != nil {
		p.logger.Warn(moduleName, "Question rewrite failed, using original", map[string]interface{}{
			"error": err.Error(),
		})
		return question
	}
	if out = prompt.CleanOutput(out); out == "" {
		return question
	}
	p.logger.Debug(moduleName, "Question rewritten", map[string]interface{}{
		"original":   question,
		"standalone": out,
	})
	return out
}

func (p *PipelineExecutor) generate(ctx context.Context, messages []llm.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	out, err := p.llm.Chat(callCtx, messages)
	if err != nil {
		return "", err
	}
	return prompt.CleanOutput(out), nil
}

// retryRead runs a read-only store call with a per-attempt timeout and a
// bounded number of retries. Only store connection failures are retried.
func retryRead[T any](ctx context.Context, p *PipelineExecutor, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			return v, nil
		}
		if !apperror.Is(err, apperror.KindStoreConnectionFailure) || errors.Is(ctx.Err(), context.Canceled) {
			return v, backoff.Permanent(err)
		}
		p.logger.Warn(moduleName, "Store read failed", map[string]interface{}{
			"op":      op,
			"attempt": attempt,
			"error":   err.Error(),
		})
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.cfg.ReadRetries+1)),
	)
}

func sourceIDs(docs []store.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, strconv.FormatInt(d.ID, 10))
	}
	return ids
}
