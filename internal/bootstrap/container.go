package bootstrap

import (
	"context"
	"fmt"
	"net"

	"owlynn-be/internal/config"
	"owlynn-be/internal/constant"
	"owlynn-be/internal/controller"
	"owlynn-be/internal/pkg/logger"
	cachememory "owlynn-be/internal/repository/memory"
	"owlynn-be/internal/repository/unitofwork"
	"owlynn-be/internal/service"
	"owlynn-be/pkg/document"
	"owlynn-be/pkg/embedding"
	"owlynn-be/pkg/events"
	"owlynn-be/pkg/llm"
	"owlynn-be/pkg/llm/factory"
	pktNats "owlynn-be/pkg/nats"
	"owlynn-be/pkg/rag/executor"
	"owlynn-be/pkg/rag/intent"
	"owlynn-be/pkg/rag/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	HealthController   controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	CleanupService  service.ICleanupService
	ActivityService service.IActivityService // nil when NATS is disabled

	Memory *memory.Manager
	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	ctx := context.Background()
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync(); _ = llmLogger.Sync() })

	uowFactory := unitofwork.NewRepositoryFactory(db)
	checks := map[string]controller.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// 2. Providers
	embeddingProvider, err := embedding.NewProvider(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	sysLogger.Info("Bootstrap", "Embedding provider ready", map[string]interface{}{
		"provider": cfg.Embedding.Provider,
		"model":    cfg.Embedding.Model,
	})

	llmProvider, err := factory.NewLLMProvider(cfg.LLM, cfg.Vision)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info("Bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
	})

	// 3. Memory tiers
	var fast memory.FastStore
	if cfg.Redis.FastTier == "memory" {
		fast = cachememory.NewConversationCache(cfg.Memory.ConversationTTL)
	} else {
		rdb := newRedisClient(cfg.Redis, sysLogger)
		fast = memory.NewRedisFastStore(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var vectors memory.VectorIndex
	switch cfg.Vector.Backend {
	case "chromem":
		idx, err := memory.NewChromemIndex(cfg.Vector.ChromaPath, memory.EmbeddingFunc(embeddingProvider))
		if err != nil {
			return nil, err
		}
		vectors = idx
	default:
		vectors = memory.NewPgVectorIndex(uowFactory, embeddingProvider)
	}

	mem := memory.NewManager(
		fast,
		memory.NewGormDurableStore(uowFactory),
		vectors,
		memory.WithTTL(cfg.Memory.ConversationTTL),
		memory.WithLogger(sysLogger),
	)
	c.Memory = mem

	// 4. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var eventPublisher events.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}

		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect NATS subscriber", map[string]interface{}{"error": err.Error()})
		} else {
			c.ActivityService = service.NewActivityService(natsSub, logger.NewIsolatedLogger("logs/activity.log"))
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 5. Services
	var converterOpts []document.Option
	converterOpts = append(converterOpts, document.WithLogger(sysLogger))
	if captioner, ok := llmProvider.(llm.Captioner); ok && cfg.Vision.CaptionModel != "" {
		converterOpts = append(converterOpts, document.WithCaptioner(captioner))
	}
	converter := document.NewConverter(cfg.Files, cfg.Vision, converterOpts...)

	publisherService := service.NewPublisherService(pubSub, constant.TopicDocumentReindex)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		constant.TopicDocumentReindex,
		mem,
		embeddingProvider,
		cfg.Embedding.MaxChars,
		sysLogger,
	)

	documentService := service.NewDocumentService(
		mem,
		converter,
		embeddingProvider,
		publisherService,
		eventPublisher,
		cfg.Files,
		cfg.Embedding.MaxChars,
		sysLogger,
	)

	pipeline := executor.NewPipelineExecutor(llmProvider, mem, executor.Config{
		LLMTimeout:      cfg.LLM.Timeout,
		StoreTimeout:    cfg.Memory.StoreTimeout,
		ReadRetries:     cfg.Memory.StoreReadRetries,
		RetrievalLimit:  cfg.Memory.RetrievalLimit,
		ContextMaxChars: cfg.Memory.ContextMaxChars,
	}, llmLogger)
	chatService := service.NewChatService(intent.NewDispatcher(), pipeline, mem, sysLogger)

	c.CleanupService = service.NewCleanupService(
		mem,
		eventPublisher,
		cfg.Memory.CleanupSchedule,
		cfg.Memory.CleanupMaxAgeDays,
		sysLogger,
	)

	// 6. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.DocumentController = controller.NewDocumentController(documentService)
	c.HealthController = controller.NewHealthController(checks)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newRedisClient(cfg config.RedisConfig, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		if cfg.URL != "" {
			log.Warn("Bootstrap", "Failed to parse Redis URL, using host and port", map[string]interface{}{"error": err.Error()})
		}
		opt = &redis.Options{
			Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}
