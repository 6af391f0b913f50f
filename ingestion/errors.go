package ingestion

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidChunking is returned for chunk sizes or overlaps that cannot split text.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrNoDocuments is returned when a directory yields nothing to ingest.
	ErrNoDocuments = errors.New("no documents found")
)
