package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"document-qa/internal/models"
)

// HashClient is a local embedder that hashes lower-cased word tokens into a fixed
// number of buckets and L2-normalizes the counts. It needs no model server and its
// vectors are stable across processes, which makes it usable for offline runs and tests.
type HashClient struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

func NewHashClient(dimension int) (*HashClient, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: hash embedder dimension must be positive, got %d", models.ErrInvalidConfig, dimension)
	}
	return &HashClient{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
	}, nil
}

func (h *HashClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *HashClient) embed(text string) []float32 {
	counts := make([]float64, h.dimension)
	for _, tok := range h.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		counts[f.Sum32()%uint32(h.dimension)]++
	}

	norm := 0.0
	for _, c := range counts {
		norm += c * c
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, h.dimension)
	if norm == 0 {
		return vec
	}
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec
}
