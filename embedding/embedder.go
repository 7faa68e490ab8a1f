package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrBackendUnavailable = errors.New("embedding backend unavailable")

const (
	DefaultBatchSize = 100 // provider batch limit
	maxRetries       = 3
	initialBackoff   = time.Second
)

// Embedder converts text into fixed-length vectors
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Factory builds an Embedder. It may block on network or model setup.
type Factory func(ctx context.Context) (Embedder, error)

// Lazy defers building the underlying Embedder until the first call.
// A failed build is not cached, so the next call retries it.
type Lazy struct {
	mu      sync.Mutex
	factory Factory
	inner   Embedder
}

// NewLazy creates a lazily initialized embedder
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Ready reports whether the backend has been initialized
func (l *Lazy) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner != nil
}

func (l *Lazy) get(ctx context.Context) (Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inner != nil {
		return l.inner, nil
	}
	if l.factory == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ErrBackendUnavailable)
	}
	inner, err := l.factory(ctx)
	if err != nil {
		return nil, unavailable("failed to initialize embedding backend", err)
	}
	l.inner = inner
	return inner, nil
}

func (l *Lazy) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, unavailable("failed to embed documents", err)
	}
	return vectors, nil
}

func (l *Lazy) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	inner, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	vector, err := inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, unavailable("failed to embed query", err)
	}
	return vector, nil
}

func unavailable(msg string, err error) error {
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, msg, err)
}

// batches splits texts into consecutive slices of at most size elements
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[i:end])
	}
	return out
}

// retry runs fn up to maxRetries times with exponential backoff.
// Each attempt gets its own timeout when timeout is positive.
func retry(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	var err error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, err)
}
