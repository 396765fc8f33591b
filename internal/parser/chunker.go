package parser

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"document-qa/internal/models"
)

// Chunker splits text into overlapping windows of whitespace-separated words.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a chunker producing windows of size words that share overlap
// words with their predecessor. It fails with models.ErrInvalidConfig unless
// 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if err := ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// ValidateChunking requires 0 <= overlap < chunkSize.
func ValidateChunking(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", models.ErrInvalidConfig, overlap, chunkSize)
	}
	return nil
}

// Chunks yields the windows of text lazily. Windows start at word 0 and every
// size-overlap words after it while the start is inside the text, so the tail
// window may be shorter than size. Text without words yields nothing.
// The sequence can be ranged over any number of times with identical results.
func (c *Chunker) Chunks(text string) iter.Seq[models.Chunk] {
	words := strings.Fields(text)
	step := c.size - c.overlap
	return func(yield func(models.Chunk) bool) {
		position := 0
		for start := 0; start < len(words); start += step {
			end := min(start+c.size, len(words))
			chunk := models.Chunk{
				Content:  strings.Join(words[start:end], " "),
				Position: position,
			}
			if !yield(chunk) {
				return
			}
			position++
		}
	}
}

// Split collects every window of text.
func (c *Chunker) Split(text string) []models.Chunk {
	return slices.Collect(c.Chunks(text))
}

// ChunkTexts returns the content of each chunk in order.
func ChunkTexts(chunks []models.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	return texts
}
