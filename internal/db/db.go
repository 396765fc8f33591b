package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

type Document struct {
	bun.BaseModel  `bun:"table:documents,alias:d"`
	Filename       string    `bun:"filename,pk"`
	ChunkCount     int       `bun:"chunk_count,notnull"`
	EmbeddingCount int       `bun:"embedding_count,notnull"`
	Dimension      int       `bun:"dimension,notnull"`
	SizeBytes      int64     `bun:"size_bytes,notnull"`
	IngestedAt     time.Time `bun:"ingested_at,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the catalog database with the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: database dsn is empty", models.ErrInvalidConfig)
	}
	switch cfg.Driver {
	case "", "pgdriver":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", models.ErrInvalidConfig, cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// UpsertDocument inserts doc or replaces the row already recorded for its filename.
func UpsertDocument(ctx context.Context, db bun.IDB, doc *Document) error {
	_, err := db.NewInsert().
		Model(doc).
		On("CONFLICT (filename) DO UPDATE").
		Set("chunk_count = EXCLUDED.chunk_count").
		Set("embedding_count = EXCLUDED.embedding_count").
		Set("dimension = EXCLUDED.dimension").
		Set("size_bytes = EXCLUDED.size_bytes").
		Set("ingested_at = EXCLUDED.ingested_at").
		Exec(ctx)
	return err
}

func ListDocuments(ctx context.Context, db bun.IDB) ([]Document, error) {
	var docs []Document
	err := db.NewSelect().
		Model(&docs).
		Order("filename ASC").
		Scan(ctx)
	return docs, err
}

// drop table documents

func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

// Catalog records ingested documents in the documents table.
type Catalog struct {
	db *bun.DB
}

func NewCatalog(db *bun.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) UpsertDocument(ctx context.Context, info models.DocumentInfo) error {
	return UpsertDocument(ctx, c.db, fromInfo(info))
}

func (c *Catalog) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	docs, err := ListDocuments(ctx, c.db)
	if err != nil {
		return nil, err
	}
	infos := make([]models.DocumentInfo, len(docs))
	for i := range docs {
		infos[i] = docs[i].toInfo()
	}
	return infos, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func fromInfo(info models.DocumentInfo) *Document {
	return &Document{
		Filename:       info.Filename,
		ChunkCount:     info.ChunkCount,
		EmbeddingCount: info.EmbeddingCount,
		Dimension:      info.Dimension,
		SizeBytes:      info.SizeBytes,
		IngestedAt:     info.IngestedAt,
	}
}

func (d *Document) toInfo() models.DocumentInfo {
	return models.DocumentInfo{
		Filename:       d.Filename,
		ChunkCount:     d.ChunkCount,
		EmbeddingCount: d.EmbeddingCount,
		Dimension:      d.Dimension,
		SizeBytes:      d.SizeBytes,
		IngestedAt:     d.IngestedAt,
	}
}
