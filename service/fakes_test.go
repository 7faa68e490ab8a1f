package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"factorymind-backend/embedding"
	"factorymind-backend/llm"
	"factorymind-backend/models"
	"factorymind-backend/repository"
	"factorymind-backend/vectorindex"
)

// letterEmbedder maps a text to the counts of a few letters, so texts about
// the same words land close together
type letterEmbedder struct{}

func letterVector(text string) []float32 {
	v := make([]float32, 4)
	for _, r := range text {
		switch r {
		case 'a':
			v[0]++
		case 'e':
			v[1]++
		case 'o':
			v[2]++
		case 'u':
			v[3]++
		}
	}
	return v
}

func (letterEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (letterEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return letterVector(text), nil
}

// switchableEmbedder behaves like letterEmbedder until err is set
type switchableEmbedder struct {
	err error
}

func (s *switchableEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return letterEmbedder{}.EmbedDocuments(ctx, texts)
}

func (s *switchableEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return letterEmbedder{}.EmbedQuery(ctx, text)
}

type recordingSynthesizer struct {
	calls    int
	question string
	chunks   []string
	sources  []string
}

func (r *recordingSynthesizer) Synthesize(ctx context.Context, question string, chunks, sources []string) (string, error) {
	r.calls++
	r.question, r.chunks, r.sources = question, chunks, sources
	return "answer from context", nil
}

type fakeCompleter struct {
	response string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type staticExtractor struct {
	pages []string
	err   error
}

func (s staticExtractor) ExtractPages(data []byte) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pages, nil
}

type staticSearcher struct {
	count   int
	results []models.SimilarityResult
	err     error
}

func (s staticSearcher) Count() int { return s.count }

func (s staticSearcher) Search(ctx context.Context, query string, k int) ([]models.SimilarityResult, error) {
	return s.results, s.err
}

var errBackend = errors.New("backend down")

func newTestIndex(t *testing.T) *vectorindex.Index {
	t.Helper()
	return newTestIndexWith(t, letterEmbedder{})
}

func newTestIndexWith(t *testing.T, emb embedding.Embedder) *vectorindex.Index {
	t.Helper()
	idx, err := vectorindex.Open(filepath.Join(t.TempDir(), "vector_store"), emb)
	if err != nil {
		t.Fatalf("vectorindex.Open: %v", err)
	}
	return idx
}

func newTestCatalog(t *testing.T) *repository.DocumentRepository {
	t.Helper()
	catalog, err := repository.OpenDocumentRepository(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatalf("OpenDocumentRepository: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })
	return catalog
}
