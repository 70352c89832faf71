package bootstrap

import (
	"context"
	"log"
	"os"
	"time"

	"study-assistant-be/internal/config"
	"study-assistant-be/internal/controller"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/unitofwork"
	"study-assistant-be/internal/service"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/gmail"
	"study-assistant-be/pkg/llm/factory"
	"study-assistant-be/pkg/rag/generate"
	"study-assistant-be/pkg/rag/grade"
	"study-assistant-be/pkg/rag/history"
	"study-assistant-be/pkg/rag/retrieve"
	"study-assistant-be/pkg/rag/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	GmailController    controller.IGmailController
	HealthController   controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. RAG Pipeline
	ragLogger := log.New(os.Stdout, "[rag] ", log.LstdFlags)

	retriever := retrieve.NewRetriever(embeddingProvider, service.NewPassageSearcher(uowFactory), ragLogger)
	grader := grade.NewGrader(llmProvider, ragLogger)
	generator := generate.NewGenerator(llmProvider, ragLogger)
	transcripts := history.NewRedisStore(rdb, time.Duration(cfg.Ai.HistoryTTLSeconds)*time.Second)

	wf := workflow.New(retriever, grader, generator, transcripts, cfg.Ai.TopK, ragLogger)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Keys.IndexTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.IndexTopic,
		uowFactory,
		embeddingProvider,
		cfg.Ai.ChunkSize,
		cfg.Ai.ChunkOverlap,
		sysLogger,
	)

	chatService := service.NewChatService(wf, transcripts, sysLogger)
	documentService := service.NewDocumentService(uowFactory, publisherService, sysLogger)

	// Gmail assistant
	oauthFlow := gmail.NewOAuthFlow(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, cfg.Gmail.RedirectURL)
	fetcher := gmail.NewFetcher(oauthFlow, log.New(os.Stdout, "[gmail] ", log.LstdFlags))
	sessionCache := gocache.New(24*time.Hour, time.Hour)
	gmailService := service.NewGmailService(
		oauthFlow,
		fetcher,
		sessionCache,
		rdb,
		llmProvider,
		cfg.Gmail.CacheTTLSeconds,
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
		GmailController:    controller.NewGmailController(gmailService, cfg.Keys.SessionSecret, cfg.App.ClientURL),
		HealthController:   controller.NewHealthController(db, rdb),

		ConsumerService: consumerService,
	}
}
