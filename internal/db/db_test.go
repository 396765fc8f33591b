package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

func TestConnectDBRejectsBadConfig(t *testing.T) {
	tests := map[string]config.DatabaseConfig{
		"empty dsn":      {Driver: "pgdriver"},
		"unknown driver": {Driver: "mysql", DSN: "postgres://localhost/docs"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ConnectDB(&cfg); !errors.Is(err, models.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDocumentInfoConversion(t *testing.T) {
	info := models.DocumentInfo{
		Filename:       "notes.txt",
		ChunkCount:     3,
		EmbeddingCount: 3,
		Dimension:      768,
		SizeBytes:      4096,
		IngestedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if got := fromInfo(info).toInfo(); got != info {
		t.Fatalf("got %+v, want %+v", got, info)
	}
}

// Runs against a real Postgres when DOCQA_TEST_DATABASE_DSN is set.
func TestCatalogPostgres(t *testing.T) {
	dsn := os.Getenv("DOCQA_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_DATABASE_DSN not set")
	}
	ctx := context.Background()

	sqldb, err := ConnectDB(&config.DatabaseConfig{Driver: "pgdriver", DSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	bunDB := NewDB(sqldb, false)
	defer bunDB.Close()

	if err := DropDocuments(ctx, bunDB); err != nil {
		t.Fatal(err)
	}
	if err := InitDB(ctx, bunDB); err != nil {
		t.Fatal(err)
	}
	defer DropDocuments(ctx, bunDB)

	catalog := NewCatalog(bunDB)
	first := models.DocumentInfo{Filename: "a.txt", ChunkCount: 3, EmbeddingCount: 3, Dimension: 8, SizeBytes: 10, IngestedAt: time.Now().UTC().Truncate(time.Second)}
	if err := catalog.UpsertDocument(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.ChunkCount, second.EmbeddingCount = 1, 1
	if err := catalog.UpsertDocument(ctx, second); err != nil {
		t.Fatal(err)
	}

	docs, err := catalog.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ChunkCount != 1 {
		t.Fatalf("docs = %+v", docs)
	}
}
