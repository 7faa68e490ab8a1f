package llm

import (
	"context"
	"fmt"
	"sync"
)

// Factory builds a Completer, typically by opening a provider client
type Factory func(ctx context.Context) (Completer, error)

// Lazy builds the underlying Completer on the first request. A failed build
// is returned to that request and retried on the next one, so a missing API
// key disables generation without stopping the server.
type Lazy struct {
	mu      sync.Mutex
	factory Factory
	inner   Completer
}

// NewLazy creates a lazily initialized completer
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

func (l *Lazy) get(ctx context.Context) (Completer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inner != nil {
		return l.inner, nil
	}
	if l.factory == nil {
		return nil, fmt.Errorf("%w: no text completion provider configured", ErrCompletionFailed)
	}
	inner, err := l.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize text completion: %v", ErrCompletionFailed, err)
	}
	l.inner = inner
	return inner, nil
}

func (l *Lazy) Complete(ctx context.Context, req Request) (string, error) {
	inner, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return inner.Complete(ctx, req)
}
