package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiEmbeddingModel = "text-embedding-004"

// geminiClient embeds through the Google Generative AI batch endpoint.
type geminiClient struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func newGeminiClient(ctx context.Context, apiKey, model string) (*geminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing api key for gemini embeddings")
	}
	if model == "" {
		model = defaultGeminiEmbeddingModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &geminiClient{client: client, model: client.EmbeddingModel(model)}, nil
}

func (g *geminiClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	batch := g.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	resp, err := g.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}
