package embedding

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/config"
)

// Lazy is a process-wide embedder handle. The underlying model client is built on
// first use and shared read-only afterwards; a construction error is kept and
// returned by every later call.
type Lazy struct {
	once     sync.Once
	build    func(context.Context) (embeddings.Embedder, error)
	embedder embeddings.Embedder
	err      error
}

var _ embeddings.Embedder = (*Lazy)(nil)

// NewLazy returns a handle that builds the embedder described by cfg on first use.
func NewLazy(cfg config.LLMConfig) *Lazy {
	return NewLazyFunc(func(ctx context.Context) (embeddings.Embedder, error) {
		return NewEmbedder(ctx, &cfg)
	})
}

// NewLazyFunc returns a handle around an arbitrary constructor.
func NewLazyFunc(build func(context.Context) (embeddings.Embedder, error)) *Lazy {
	return &Lazy{build: build}
}

// Get builds the embedder if needed and returns it.
func (l *Lazy) Get(ctx context.Context) (embeddings.Embedder, error) {
	l.once.Do(func() {
		// the client outlives the request that happened to create it
		l.embedder, l.err = l.build(context.WithoutCancel(ctx))
	})
	return l.embedder, l.err
}

func (l *Lazy) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return e.EmbedDocuments(ctx, texts)
}

func (l *Lazy) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return e.EmbedQuery(ctx, text)
}
