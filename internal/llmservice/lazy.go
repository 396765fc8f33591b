package llmservice

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/config"
)

// Lazy is the process-wide generation model. It is built on the first call and
// reused for every request after that.
type Lazy struct {
	once  sync.Once
	build func(context.Context) (llms.Model, error)
	model llms.Model
	err   error
}

var _ llms.Model = (*Lazy)(nil)

func NewLazy(cfg config.LLMConfig) *Lazy {
	return NewLazyFunc(func(ctx context.Context) (llms.Model, error) {
		return NewModel(ctx, &cfg)
	})
}

func NewLazyFunc(build func(context.Context) (llms.Model, error)) *Lazy {
	return &Lazy{build: build}
}

// Get builds the model if needed and returns it.
func (l *Lazy) Get(ctx context.Context) (llms.Model, error) {
	l.once.Do(func() {
		l.model, l.err = l.build(context.WithoutCancel(ctx))
	})
	return l.model, l.err
}

func (l *Lazy) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return m.GenerateContent(ctx, messages, options...)
}

func (l *Lazy) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)
}
