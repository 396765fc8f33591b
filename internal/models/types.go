package models

import "time"

// Chunk is one word window of a document, addressed by its position in the chunk sequence.
type Chunk struct {
	Content  string
	Position int
}

// IngestResult is reported back to the uploader once a document is indexed.
type IngestResult struct {
	Message       string `json:"message"`
	Filename      string `json:"filename"`
	PreviewText   string `json:"preview_text"`
	NumChunks     int    `json:"num_chunks"`
	NumEmbeddings int    `json:"num_embeddings"`
	Dimension     int    `json:"dimension"`
}

// QueryResult holds the retrieved chunks, in ascending distance order, and the generated answer.
type QueryResult struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
	Answer  string   `json:"answer"`
}

// DocumentInfo describes an ingested document.
type DocumentInfo struct {
	Filename       string    `json:"filename"`
	ChunkCount     int       `json:"chunk_count,omitempty"`
	EmbeddingCount int       `json:"embedding_count,omitempty"`
	Dimension      int       `json:"dimension,omitempty"`
	SizeBytes      int64     `json:"size_bytes"`
	IngestedAt     time.Time `json:"ingested_at"`
}
