package rag

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/storage"
	"document-qa/internal/vectorindex"
)

// Catalog records ingested documents outside the storage directory.
type Catalog interface {
	UpsertDocument(ctx context.Context, doc models.DocumentInfo) error
	ListDocuments(ctx context.Context) ([]models.DocumentInfo, error)
}

// RAG runs the ingest and query pipelines over one storage directory.
type RAG struct {
	store     *storage.Store
	chunker   *parser.Chunker
	embedder  embeddings.Embedder
	llm       llms.Model
	catalog   Catalog
	maxTokens int
	preview   int
}

// NewRAG wires the pipeline. catalog may be nil.
func NewRAG(store *storage.Store, embedder embeddings.Embedder, llm llms.Model, catalog Catalog, cfg *config.RAGConfig) (*RAG, error) {
	chunker, err := parser.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = models.DefaultMaxTokens
	}
	preview := cfg.PreviewChars
	if preview <= 0 {
		preview = models.DefaultPreviewChars
	}
	return &RAG{
		store:     store,
		chunker:   chunker,
		embedder:  embedder,
		llm:       llm,
		catalog:   catalog,
		maxTokens: maxTokens,
		preview:   preview,
	}, nil
}

// Ingest stores the document read from r under filename and builds its vector index.
// The document and index are published together once every stage has succeeded, and
// are rolled back to their previous state if the catalog rejects the record.
func (r *RAG) Ingest(ctx context.Context, filename string, body io.Reader) (*models.IngestResult, error) {
	if err := storage.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if !parser.Supported(filename) {
		return nil, fmt.Errorf("%w: only .pdf or .txt files are supported, got %q", models.ErrUnsupportedFormat, filename)
	}

	release := r.store.Locks().Lock(filename)
	defer release()

	staged, err := r.store.Stage(filename, body)
	if err != nil {
		return nil, err
	}
	defer staged.Discard()

	text, err := parser.ExtractText(staged.Path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	chunks := r.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyDocument, filename)
	}
	log.Debug().Str("file", filename).Int("chunks", len(chunks)).Msg("Chunked document")

	vectors, err := embedding.EmbedChunks(ctx, r.embedder, parser.ChunkTexts(chunks))
	if err != nil {
		return nil, err
	}
	index, err := vectorindex.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	stagedIndex, err := r.store.StageIndex(filename, index)
	if err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}
	defer stagedIndex.Discard()

	pub, err := storage.Publish(staged, stagedIndex)
	if err != nil {
		return nil, err
	}
	if r.catalog != nil {
		err := r.catalog.UpsertDocument(ctx, models.DocumentInfo{
			Filename:       filename,
			ChunkCount:     len(chunks),
			EmbeddingCount: index.Len(),
			Dimension:      index.Dimension(),
			SizeBytes:      staged.Size,
			IngestedAt:     time.Now().UTC(),
		})
		if err != nil {
			pub.Rollback()
			return nil, fmt.Errorf("record document: %w", err)
		}
	}
	pub.Finish()

	log.Info().Str("file", filename).Int("chunks", len(chunks)).Int("dimension", index.Dimension()).Msg("Ingested document")
	return &models.IngestResult{
		Message:       fmt.Sprintf("File '%s' uploaded, parsed, chunked and indexed successfully!", filename),
		Filename:      filename,
		PreviewText:   helper.Truncate(text, r.preview),
		NumChunks:     len(chunks),
		NumEmbeddings: index.Len(),
		Dimension:     index.Dimension(),
	}, nil
}

// Query answers question from the top chunks of a previously ingested document.
func (r *RAG) Query(ctx context.Context, filename, question string) (*models.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", models.ErrInvalidQuery)
	}
	if err := storage.ValidateFilename(filename); err != nil {
		return nil, err
	}

	release := r.store.Locks().RLock(filename)
	defer release()

	ok, err := r.store.Exists(filename)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no indexed document named %q", models.ErrNotFound, filename)
	}

	queryVector, err := embedding.EmbedQuery(ctx, r.embedder, question)
	if err != nil {
		return nil, err
	}
	index, err := vectorindex.Load(r.store.IndexPath(filename))
	if err != nil {
		return nil, err
	}
	hits, err := index.Search(queryVector, models.QueryTopK)
	if err != nil {
		return nil, err
	}

	// chunk text is not persisted; it is re-derived from the stored document
	text, err := parser.ExtractText(r.store.DocumentPath(filename))
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	chunks := r.chunker.Split(text)

	retrieved := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Position >= len(chunks) {
			log.Warn().Str("file", filename).Int("position", hit.Position).Int("chunks", len(chunks)).Msg("Dropping search hit beyond chunk count")
			continue
		}
		retrieved = append(retrieved, chunks[hit.Position].Content)
	}

	answer, err := GenerateAnswer(ctx, r.llm, retrieved, question, r.maxTokens)
	if err != nil {
		return nil, err
	}

	log.Info().Str("file", filename).Int("chunks", len(retrieved)).Msg("Answered query")
	return &models.QueryResult{
		Query:   question,
		Results: retrieved,
		Answer:  answer,
	}, nil
}

// Documents lists ingested documents from the catalog when one is configured,
// otherwise from the storage directory.
func (r *RAG) Documents(ctx context.Context) ([]models.DocumentInfo, error) {
	if r.catalog != nil {
		return r.catalog.ListDocuments(ctx)
	}
	return r.store.List()
}
