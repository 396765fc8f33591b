package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

// BuildPrompt joins the retrieved chunks with newlines into a context block and frames
// it with the answer instruction and the question.
func BuildPrompt(chunks []string, question string) string {
	return fmt.Sprintf(models.AnswerPromptTemplate, models.AnswerInstruction, strings.Join(chunks, "\n"), question)
}

// GenerateAnswer asks model to answer question from chunks, bounded to maxTokens output
// tokens, and returns the model's first choice unmodified.
func GenerateAnswer(ctx context.Context, model llms.Model, chunks []string, question string, maxTokens int) (string, error) {
	return llmservice.GenerateContent(ctx, model, BuildPrompt(chunks, question), llms.WithMaxTokens(maxTokens))
}
