package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"factorymind-backend/models"
)

const (
	NoDocumentsAnswer = "No documents have been uploaded yet. Please upload some documents first to enable Q&A."
	NoRelevantAnswer  = "I couldn't find relevant information in the uploaded documents to answer your question."

	DefaultTopK = 4
)

// Searcher is the read side of the similarity index
type Searcher interface {
	Count() int
	Search(ctx context.Context, query string, k int) ([]models.SimilarityResult, error)
}

// Retriever answers questions from the top-k most similar chunks
type Retriever struct {
	index       Searcher
	synthesizer Synthesizer
	topK        int
}

// NewRetriever creates a retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(index Searcher, synthesizer Synthesizer, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, synthesizer: synthesizer, topK: topK}
}

// Answer retrieves context for question and hands it to the synthesizer.
// An empty index or an empty search result yields a sentinel answer with no
// citations instead of an error.
func (r *Retriever) Answer(ctx context.Context, question string) (*models.QueryResult, error) {
	if r.index == nil {
		return nil, errors.New("similarity index not set")
	}
	if r.index.Count() == 0 {
		return &models.QueryResult{Answer: NoDocumentsAnswer, Citations: []string{}}, nil
	}

	results, err := r.index.Search(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	if len(results) == 0 {
		return &models.QueryResult{Answer: NoRelevantAnswer, Citations: []string{}}, nil
	}

	if r.synthesizer == nil {
		return nil, errors.New("answer synthesizer not set")
	}

	chunks := make([]string, len(results))
	sources := make([]string, len(results))
	for i, res := range results {
		chunks[i] = res.ChunkText
		sources[i] = displayName(res.SourceName)
	}

	answer, err := r.synthesizer.Synthesize(ctx, question, chunks, sources)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize answer: %w", err)
	}

	return &models.QueryResult{
		Answer:          answer,
		Citations:       uniqueSorted(sources),
		ChunksRetrieved: len(results),
	}, nil
}

// displayName strips any directory from a source identifier
func displayName(source string) string {
	if source == "" {
		return "unknown"
	}
	return path.Base(strings.ReplaceAll(source, "\\", "/"))
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
