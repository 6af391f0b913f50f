package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbeddingCount is returned when the embedder returns a different
	// number of vectors than it was given texts.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrEmbedderRequired is returned when no embedder is configured.
	ErrEmbedderRequired = errors.New("embedder is required")
)
