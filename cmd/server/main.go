package main

import (
	"context"
	"log"

	"factorymind-backend/chunker"
	"factorymind-backend/config"
	"factorymind-backend/embedding"
	"factorymind-backend/handlers"
	"factorymind-backend/llm"
	"factorymind-backend/pdfextract"
	"factorymind-backend/repository"
	"factorymind-backend/service"
	"factorymind-backend/storage"
	"factorymind-backend/vectorindex"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	ctx := context.Background()

	// Initialize storage
	fileStorage, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Println("Storage initialized")

	// The embedding backend is created on first use so startup does not
	// depend on the provider being reachable
	embedder := embedding.NewLazy(embeddingFactory(cfg))
	index, err := vectorindex.Open(cfg.VectorStorePath, embedder)
	if err != nil {
		log.Fatalf("Failed to open similarity index: %v", err)
	}

	catalog, err := repository.OpenDocumentRepository(cfg.DocumentCatalogPath)
	if err != nil {
		log.Fatalf("Failed to open document catalog: %v", err)
	}
	defer catalog.Close()

	reportStore, closeStore, err := initReportStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize report store: %v", err)
	}
	defer closeStore()

	// A missing key only fails the requests that need generation
	completer := llm.NewLazy(completerFactory(cfg))

	// Initialize services
	ragService := service.NewRAGService(
		service.RAGWithChunker(chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)),
		service.RAGWithIndex(index),
		service.RAGWithCatalog(catalog),
		service.RAGWithStorage(fileStorage),
		service.RAGWithExtractor(pdfextract.NewExtractor()),
		service.RAGWithSynthesizer(service.NewAnswerSynthesizer(completer)),
		service.RAGWithTopK(cfg.TopK),
	)
	reportService := service.NewReportService(
		service.ReportWithStore(reportStore),
		service.ReportWithNarrator(service.NewNarrativeGenerator(completer)),
		service.ReportWithStorage(fileStorage),
	)

	if cfg.AdminTokenHash == "" {
		log.Println("Warning: ADMIN_TOKEN_HASH not set, admin routes are unprotected")
	}

	// Setup Gin router
	r := gin.Default()
	handlers.RegisterRoutes(r,
		handlers.NewDocumentHandler(ragService, fileStorage),
		handlers.NewReportHandler(reportService),
		handlers.NewSystemHandler(ragService, reportService),
		cfg.AdminTokenHash,
	)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func embeddingFactory(cfg *config.Config) embedding.Factory {
	if cfg.EmbeddingProvider == config.ProviderOpenAI {
		return embedding.OpenAIFactory(embedding.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIEmbeddingModel,
			BatchSize: cfg.EmbeddingBatchSize,
			Timeout:   cfg.EmbeddingTimeout,
		})
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}
	return embedding.GeminiFactory(cfg.GeminiAPIKey,
		embedding.GeminiWithModel(cfg.GeminiEmbeddingModel),
		embedding.GeminiWithBatchSize(cfg.EmbeddingBatchSize),
		embedding.GeminiWithTimeout(cfg.EmbeddingTimeout),
	)
}

func completerFactory(cfg *config.Config) llm.Factory {
	if cfg.LLMProvider == config.ProviderOpenAI {
		if cfg.OpenAIAPIKey == "" {
			log.Println("Warning: OPENAI_API_KEY not set, report generation and chat are disabled")
		}
		return func(ctx context.Context) (llm.Completer, error) {
			completer, err := llm.NewOpenAICompleter(llm.OpenAIConfig{
				APIKey:  cfg.OpenAIAPIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAIChatModel,
				Timeout: cfg.LLMTimeout,
			})
			if err != nil {
				return nil, err
			}
			return completer, nil
		}
	}

	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set, report generation and chat are disabled")
	}
	return func(ctx context.Context) (llm.Completer, error) {
		// the client outlives the request that triggered it
		client, err := llm.NewGeminiClient(context.WithoutCancel(ctx), cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		log.Println("Gemini client initialized")
		return llm.NewGeminiCompleter(client, cfg.GeminiModel, cfg.LLMTimeout), nil
	}
}

func initReportStore(ctx context.Context, cfg *config.Config) (repository.ReportStore, func(), error) {
	if cfg.ReportStore != config.ReportStorePostgres {
		store, err := repository.NewReportFileRepository(cfg.ReportsPath)
		return store, func() {}, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Println("Postgres connection established")
	return repository.NewReportPGRepository(pool), pool.Close, nil
}
