package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder embeds text with a Gemini embedding model
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	batchSize int
	timeout   time.Duration
}

// GeminiOption is a functional option for GeminiEmbedder
type GeminiOption func(*GeminiEmbedder)

// GeminiWithModel sets the embedding model name
func GeminiWithModel(model string) GeminiOption {
	return func(e *GeminiEmbedder) {
		if model != "" {
			e.model = model
		}
	}
}

// GeminiWithBatchSize sets how many texts go into one batch request
func GeminiWithBatchSize(n int) GeminiOption {
	return func(e *GeminiEmbedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// GeminiWithTimeout bounds each embedding call
func GeminiWithTimeout(d time.Duration) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.timeout = d
	}
}

// NewGeminiEmbedder wraps an existing Gemini client
func NewGeminiEmbedder(client *genai.Client, opts ...GeminiOption) *GeminiEmbedder {
	e := &GeminiEmbedder{
		client:    client,
		model:     DefaultGeminiModel,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GeminiFactory returns a Factory that opens the Gemini client on first use
func GeminiFactory(apiKey string, opts ...GeminiOption) Factory {
	return func(ctx context.Context) (Embedder, error) {
		if apiKey == "" {
			return nil, errors.New("GEMINI_API_KEY not set")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return NewGeminiEmbedder(client, opts...), nil
	}
}

func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		b := em.NewBatch()
		for _, text := range batch {
			b.AddContent(genai.Text(text))
		}

		var resp *genai.BatchEmbedContentsResponse
		err := retry(ctx, e.timeout, func(ctx context.Context) error {
			var err error
			resp, err = em.BatchEmbedContents(ctx, b)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("mismatch: got %d embeddings for %d texts in batch", len(resp.Embeddings), len(batch))
		}
		for _, emb := range resp.Embeddings {
			vectors = append(vectors, emb.Values)
		}
	}
	return vectors, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	var resp *genai.EmbedContentResponse
	err := retry(ctx, e.timeout, func(ctx context.Context) error {
		var err error
		resp, err = em.EmbedContent(ctx, genai.Text(text))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if resp.Embedding == nil {
		return nil, errors.New("empty embedding in response")
	}
	return resp.Embedding.Values, nil
}
