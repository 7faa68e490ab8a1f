package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"factorymind-backend/chunker"
	"factorymind-backend/config"
	"factorymind-backend/embedding"
	"factorymind-backend/pdfextract"
	"factorymind-backend/repository"
	"factorymind-backend/service"
	"factorymind-backend/storage"
	"factorymind-backend/vectorindex"
)

func main() {
	dir := flag.String("dir", "./documents", "directory of PDF files to ingest")
	force := flag.Bool("force", false, "re-ingest documents that are already catalogued")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	ctx := context.Background()

	fileStorage, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	index, err := vectorindex.Open(cfg.VectorStorePath, embedding.NewLazy(embeddingFactory(cfg)))
	if err != nil {
		log.Fatalf("Failed to open similarity index: %v", err)
	}
	catalog, err := repository.OpenDocumentRepository(cfg.DocumentCatalogPath)
	if err != nil {
		log.Fatalf("Failed to open document catalog: %v", err)
	}
	defer catalog.Close()

	rag := service.NewRAGService(
		service.RAGWithChunker(chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)),
		service.RAGWithIndex(index),
		service.RAGWithCatalog(catalog),
		service.RAGWithStorage(fileStorage),
		service.RAGWithExtractor(pdfextract.NewExtractor()),
	)

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Failed to read directory: %v", err)
	}

	var ingested, skipped, failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		name := entry.Name()

		if !*force {
			if _, err := catalog.Get(ctx, name); err == nil {
				log.Printf("Skipping %s (already ingested)", name)
				skipped++
				continue
			} else if !errors.Is(err, repository.ErrDocumentNotFound) {
				log.Fatalf("Failed to check catalog: %v", err)
			}
		}

		data, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			log.Printf("Warning: Failed to read %s: %v", name, err)
			failed++
			continue
		}

		result, err := rag.IngestPDF(ctx, name, data)
		if err != nil {
			log.Printf("Warning: Failed to ingest %s: %v", name, err)
			failed++
			if errors.Is(err, embedding.ErrBackendUnavailable) {
				log.Fatal("Embedding backend unavailable, stopping")
			}
			continue
		}
		log.Printf("Ingested %s: %d chunks from %d pages", name, result.ChunkCount, result.PageCount)
		ingested++
	}

	fmt.Printf("Ingestion complete: %d ingested, %d skipped, %d failed (%d vectors in index)\n",
		ingested, skipped, failed, index.Count())
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
	return embedding.GeminiFactory(cfg.GeminiAPIKey,
		embedding.GeminiWithModel(cfg.GeminiEmbeddingModel),
		embedding.GeminiWithBatchSize(cfg.EmbeddingBatchSize),
		embedding.GeminiWithTimeout(cfg.EmbeddingTimeout),
	)
}
