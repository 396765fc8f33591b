package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// gemini caps batch embedding requests at 100 contents
const geminiBatchSize = 100

// NewEmbedder builds the embedder selected by LLMconfig.Provider.
func NewEmbedder(ctx context.Context, LLMconfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        LLMconfig.Provider,
		"base_url":        LLMconfig.BaseURL,
		"embedding_model": LLMconfig.Model,
	}).Msg("Loading embedder")

	var opts []embeddings.Option
	var client embeddings.EmbedderClient
	switch LLMconfig.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(LLMconfig.BaseURL),
			ollama.WithModel(LLMconfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("init ollama embedder: %w", err)
		}
		client = llm
	case "openai":
		openaiOpts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(LLMconfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(LLMconfig.Model),
		}
		if LLMconfig.BaseURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(LLMconfig.BaseURL))
		}
		llm, err := openai.New(openaiOpts...)
		if err != nil {
			return nil, fmt.Errorf("init openai embedder: %w", err)
		}
		client = llm
	case "compat":
		if LLMconfig.BaseURL == "" {
			return nil, fmt.Errorf("%w: compat embedder needs base_url", models.ErrInvalidConfig)
		}
		client = FuncClient(chromem.NewEmbeddingFuncOpenAICompat(LLMconfig.BaseURL, LLMconfig.Key, LLMconfig.Model, nil))
	case "gemini":
		g, err := newGeminiClient(ctx, LLMconfig.Key, LLMconfig.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini embedder: %w", err)
		}
		client = g
		opts = append(opts, embeddings.WithBatchSize(geminiBatchSize))
	case "hash":
		h, err := NewHashClient(LLMconfig.Dimensions)
		if err != nil {
			return nil, err
		}
		client = h
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfig, LLMconfig.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedChunks embeds texts in order, one vector per text.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", models.ErrEmbedding, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for chunk %d", models.ErrEmbedding, i)
		}
	}
	log.Debug().Int("chunks", len(texts)).Int("dimension", len(vectors[0])).Msg("Embedded chunks")
	return vectors, nil
}

// EmbedQuery embeds a single question.
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, query string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", models.ErrEmbedding)
	}
	return vector, nil
}

// FuncClient adapts a chromem embedding function to the langchaingo embedder client.
type FuncClient chromem.EmbeddingFunc

func (f FuncClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}
