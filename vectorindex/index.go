package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"factorymind-backend/embedding"
	"factorymind-backend/models"
)

var (
	ErrPersistence       = errors.New("failed to persist similarity index")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Index is an exact (flat) nearest-neighbour index over chunk embeddings,
// mirrored to a vector file and a metadata sidecar under one directory.
//
// Writers hold the lock across persist and commit, so the files on disk always
// describe a state the index has actually been in. Embedding calls happen
// outside the lock.
type Index struct {
	mu       sync.RWMutex
	store    *fileStore
	embedder embedding.Embedder
	dim      int
	entries  []models.IndexedVector
}

// Open creates an index rooted at dir and loads any persisted state.
// A missing or unreadable index is logged and replaced by an empty one.
func Open(dir string, embedder embedding.Embedder) (*Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	idx := &Index{
		store:    &fileStore{dir: dir},
		embedder: embedder,
	}
	if !idx.store.exists() {
		log.Printf("No existing similarity index in %s, starting empty", dir)
		return idx, nil
	}
	entries, dim, err := idx.store.load()
	if err != nil {
		log.Printf("Warning: Failed to load similarity index from %s: %v. Starting empty.", dir, err)
		return idx, nil
	}
	idx.entries = entries
	idx.dim = dim
	log.Printf("Loaded similarity index with %d vectors from %s", len(entries), dir)
	return idx, nil
}

// Dir returns the directory holding the index files
func (idx *Index) Dir() string {
	return idx.store.dir
}

// Add embeds the chunks in batches and appends them to the index. The new
// state is written to disk before it becomes visible in memory; if the write
// fails the in-memory index is left unchanged.
func (idx *Index) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return idx.commitLocked(idx.entries, chunks, vectors)
}

// ReplaceSource swaps every chunk of source for the given chunks in a single
// persist. The new chunks are embedded before the index is touched, so an
// embedding failure leaves the previous version in place. It returns the
// number of chunks that were replaced.
func (idx *Index) ReplaceSource(ctx context.Context, source string, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return idx.DeleteBySource(ctx, source)
	}
	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	survivors := idx.withoutLocked(source)
	replaced := len(idx.entries) - len(survivors)
	if err := idx.commitLocked(survivors, chunks, vectors); err != nil {
		return 0, err
	}
	return replaced, nil
}

func (idx *Index) embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", embedding.ErrBackendUnavailable, len(vectors), len(chunks))
	}
	return vectors, nil
}

// commitLocked persists base plus the new (chunk, vector) pairs and then makes
// them the in-memory state. Callers hold the write lock.
func (idx *Index) commitLocked(base []models.IndexedVector, chunks []models.Chunk, vectors [][]float32) error {
	dim := idx.dim
	if len(base) == 0 {
		dim = len(vectors[0])
	}
	next := make([]models.IndexedVector, len(base), len(base)+len(chunks))
	copy(next, base)
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(v))
		}
		next = append(next, models.IndexedVector{Vector: v, Chunk: chunks[i]})
	}

	if err := idx.store.save(next, dim); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	idx.entries = next
	idx.dim = dim
	return nil
}

func (idx *Index) withoutLocked(source string) []models.IndexedVector {
	survivors := make([]models.IndexedVector, 0, len(idx.entries))
	for _, e := range idx.entries {
		if e.Chunk.SourceID != source {
			survivors = append(survivors, e)
		}
	}
	return survivors
}

// Search returns the k entries closest to the query by squared Euclidean
// distance, nearest first. An empty index returns no results without calling
// the embedder.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]models.SimilarityResult, error) {
	if k <= 0 || idx.Count() == 0 {
		return []models.SimilarityResult{}, nil
	}
	qv, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return []models.SimilarityResult{}, nil
	}
	if len(qv) != idx.dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, idx.dim, len(qv))
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(idx.entries))
	for i, e := range idx.entries {
		hits[i] = hit{pos: i, dist: squaredL2(qv, e.Vector)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })
	if k > len(hits) {
		k = len(hits)
	}

	results := make([]models.SimilarityResult, k)
	for i := 0; i < k; i++ {
		e := idx.entries[hits[i].pos]
		results[i] = models.SimilarityResult{
			ChunkText:     e.Chunk.Text,
			SourceName:    e.Chunk.SourceID,
			DistanceScore: hits[i].dist,
			Chunk:         e.Chunk,
		}
	}
	return results, nil
}

// Count returns the number of indexed vectors
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Sources returns the distinct source ids present in the index
func (idx *Index) Sources() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range idx.entries {
		if _, ok := seen[e.Chunk.SourceID]; ok {
			continue
		}
		seen[e.Chunk.SourceID] = struct{}{}
		out = append(out, e.Chunk.SourceID)
	}
	sort.Strings(out)
	return out
}

// Clear drops every vector and removes the backing files
func (idx *Index) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.remove(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	idx.entries = nil
	idx.dim = 0
	return nil
}

// DeleteBySource removes every chunk of the given source. A flat index has no
// per-record delete, so the surviving (chunk, vector) pairs are copied into a
// fresh index which then replaces the old one on disk and in memory. Cost is
// O(index size) regardless of how many vectors are removed. Stored vectors are
// reused; nothing is re-embedded.
func (idx *Index) DeleteBySource(ctx context.Context, source string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	survivors := idx.withoutLocked(source)
	removed := len(idx.entries) - len(survivors)
	if removed == 0 {
		return 0, nil
	}

	if len(survivors) == 0 {
		if err := idx.store.remove(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		idx.entries = nil
		idx.dim = 0
		return removed, nil
	}

	if err := idx.store.save(survivors, idx.dim); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	idx.entries = survivors
	return removed, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
