package llmservice

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

type scriptedModel struct {
	resp    *llms.ContentResponse
	err     error
	prompts []string
	opts    llms.CallOptions
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&m.opts)
	}
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if text, ok := p.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	return m.resp, m.err
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestGenerateContentReturnsFirstChoiceVerbatim(t *testing.T) {
	m := &scriptedModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{
		{Content: "  Paris.\n"},
		{Content: "Lyon"},
	}}}
	got, err := GenerateContent(context.Background(), m, "where?", llms.WithMaxTokens(200))
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if got != "  Paris.\n" {
		t.Fatalf("got %q", got)
	}
	if m.opts.MaxTokens != 200 {
		t.Fatalf("max tokens = %d", m.opts.MaxTokens)
	}
	if len(m.prompts) != 1 || m.prompts[0] != "where?" {
		t.Fatalf("prompts = %v", m.prompts)
	}
}

func TestGenerateContentErrors(t *testing.T) {
	tests := map[string]*scriptedModel{
		"model error": {err: errors.New("boom")},
		"no choices":  {resp: &llms.ContentResponse{}},
		"nil resp":    {},
	}
	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := GenerateContent(context.Background(), m, "q"); !errors.Is(err, models.ErrGeneration) {
				t.Fatalf("expected ErrGeneration, got %v", err)
			}
		})
	}
}

func TestNewModelUnknownProvider(t *testing.T) {
	_, err := NewModel(context.Background(), &config.LLMConfig{Provider: "t5"})
	if !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewModelGeminiNeedsKey(t *testing.T) {
	if _, err := NewModel(context.Background(), &config.LLMConfig{Provider: "gemini"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestLazyBuildsOnce(t *testing.T) {
	var builds atomic.Int32
	inner := &scriptedModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	lazy := NewLazyFunc(func(context.Context) (llms.Model, error) {
		builds.Add(1)
		return inner, nil
	})
	for i := 0; i < 3; i++ {
		got, err := lazy.Call(context.Background(), "hi")
		if err != nil || got != "ok" {
			t.Fatalf("Call = %q, %v", got, err)
		}
	}
	if builds.Load() != 1 {
		t.Fatalf("model built %d times", builds.Load())
	}
}
