package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// NewModel builds the generation model selected by llmConfig.Provider.
func NewModel(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Interface("llmConfig", map[string]string{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Loading generation model")

	switch llmConfig.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case "openai", "compat":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	case "gemini":
		return newGemini(ctx, llmConfig.Key, llmConfig.Model)
	default:
		return nil, fmt.Errorf("%w: unknown inference provider %q", models.ErrInvalidConfig, llmConfig.Provider)
	}
}

// GenerateContent sends a single human prompt and returns the first choice verbatim.
func GenerateContent(ctx context.Context, model llms.Model, prompt string, options ...llms.CallOption) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := model.GenerateContent(ctx, msgContent, options...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: model returned no choices", models.ErrGeneration)
	}
	return resp.Choices[0].Content, nil
}
