package bootstrap

import (
	"context"
	"log"
	"time"

	"datachat-be/internal/adapter"
	"datachat-be/internal/config"
	"datachat-be/internal/controller"
	"datachat-be/internal/pkg/logger"
	"datachat-be/internal/repository/implementation"
	"datachat-be/internal/service"
	"datachat-be/pkg/analysis"
	"datachat-be/pkg/backend"
	"datachat-be/pkg/cache"
	"datachat-be/pkg/drill"
	"datachat-be/pkg/embedding"
	"datachat-be/pkg/engine"
	"datachat-be/pkg/llm/factory"
	"datachat-be/pkg/persona"
	"datachat-be/pkg/route"
	"datachat-be/pkg/schedule"
	"datachat-be/pkg/session"
	"datachat-be/pkg/synth"
	"datachat-be/pkg/telemetry"

	pktNats "datachat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	QueryController   controller.IQueryController
	SessionController controller.ISessionController

	// Background Services (Exposed for main.go to run)
	WorkerService  service.IWorkerService
	MetricsService service.IMetricsService

	// Core handles main.go needs for shutdown
	Bus      *telemetry.Bus
	Sessions *session.Manager

	sweeperStop chan struct{}
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	workerLogger := logger.NewIsolatedLogger("logs/worker.log")
	engineLogger := log.Default()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	bus := telemetry.NewBus(pubSub, natsPub, engineLogger)

	// 3. AI Providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Repositories
	datasetRepo := implementation.NewDatasetRepository(db)
	relationRepo := implementation.NewRelationRepository(db)
	glossaryRepo := implementation.NewGlossaryRepository(db)
	embeddingRepo := implementation.NewEmbeddingRepository(db)
	turnRepo := implementation.NewTurnRepository(db)

	// 5. Retrieval Backends
	registry := backend.NewRegistry()
	for _, a := range []backend.Adapter{
		adapter.NewStructuredAdapter(datasetRepo, sysLogger),
		adapter.NewSemanticAdapter(embeddingProvider, embeddingRepo, datasetRepo, sysLogger),
		adapter.NewGraphAdapter(relationRepo, sysLogger),
		adapter.NewKnowledgeAdapter(glossaryRepo, sysLogger),
	} {
		if err := registry.Register(a); err != nil {
			log.Fatalf("[FATAL] Failed to register backend %s: %v", a.Kind(), err)
		}
	}

	// 6. Caches
	var answers cache.AnswerCache
	if cfg.Engine.UseRedisAnswers && cfg.App.RedisURL != "" {
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
		answers = cache.NewRedisAnswerCache(rdb, cfg.Engine.AnswerCacheTTL, engineLogger)
		log.Printf("[INFO] Using Answer Cache: REDIS")
	} else {
		answers = cache.NewMemoryAnswerCache(cfg.Engine.AnswerCacheTTL)
		log.Printf("[INFO] Using Answer Cache: MEMORY")
	}

	drilldowns := cache.NewDrilldownStore()
	routes := cache.NewRouteMemory(cfg.Engine.RouteMemoryTTL)

	// 7. Sessions
	sessions := session.NewManager(session.Limits{
		TokenBudget: cfg.Engine.SessionTokenBudget,
		MaxTurns:    cfg.Engine.SessionMaxTurns,
		IdleTTL:     cfg.Engine.SessionIdleTTL,
		MaxSessions: cfg.Engine.SessionCap,
	}, engine.NewBusFlusher(bus, drilldowns), engineLogger)

	sweeperStop := make(chan struct{})
	sessions.StartSweeper(time.Minute, sweeperStop)

	// 8. Engine
	eng := engine.New(engine.Deps{
		Classifier:  analysis.NewRuleClassifier(engineLogger),
		Resolver:    analysis.NewCatalogResolver(glossaryRepo, engineLogger),
		Router:      route.NewRouter(engineLogger),
		Registry:    registry,
		Scheduler:   schedule.NewScheduler(registry, drilldowns, engineLogger),
		Sessions:    sessions,
		Personas:    persona.NewSelector(),
		Answers:     answers,
		Routes:      routes,
		Drill:       drill.NewHandler(drilldowns, engineLogger),
		Synthesizer: synth.NewLLMSynthesizer(llmProvider, engineLogger),
		Bus:         bus,
		Logger:      engineLogger,
	}, engine.Config{
		ConfidenceThreshold:  cfg.Engine.ConfidenceThreshold,
		FastQualityThreshold: cfg.Engine.FastQuality,
		SynthesisMaxTokens:   cfg.Engine.SynthesisMaxTokens,
	})

	// 9. Services
	queryService := service.NewQueryService(eng, sessions, sysLogger)
	workerService := service.NewWorkerService(bus, turnRepo)
	metricsService := service.NewMetricsService(bus, workerLogger)

	// 10. Controllers
	return &Container{
		QueryController:   controller.NewQueryController(queryService),
		SessionController: controller.NewSessionController(queryService),

		WorkerService:  workerService,
		MetricsService: metricsService,

		Bus:      bus,
		Sessions: sessions,

		sweeperStop: sweeperStop,
	}
}

// Close stops the session sweeper and flushes the event bus
func (c *Container) Close() {
	close(c.sweeperStop)
	if err := c.Bus.Close(); err != nil {
		log.Printf("[WARN] Failed to close event bus: %v", err)
	}
}
