package models

import "errors"

// Error kinds. Stages wrap these with context; callers classify with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNotFound          = errors.New("not found")
	ErrCorruptIndex      = errors.New("corrupt index")
	ErrGeneration        = errors.New("generation failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrEmptyDocument     = errors.New("document has no extractable text")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrInvalidQuery      = errors.New("invalid query")
)
