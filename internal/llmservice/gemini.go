package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini adapts the Google Generative AI client to llms.Model.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ llms.Model = (*Gemini)(nil)

func newGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing api key for gemini")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	model := g.client.GenerativeModel(g.model)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		model.SetTemperature(float32(opts.Temperature))
	}

	var parts []genai.Part
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, genai.Text(text.Text))
			}
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no text parts to send")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}

	out := &llms.ContentResponse{}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		out.Choices = append(out.Choices, &llms.ContentChoice{
			Content:    sb.String(),
			StopReason: cand.FinishReason.String(),
		})
	}
	return out, nil
}

func (g *Gemini) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}
