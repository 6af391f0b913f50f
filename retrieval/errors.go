package retrieval

import "errors"

var (
	// ErrEmbedderRequired is returned when a VectorRetriever is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrRepositoryRequired is returned when a VectorRetriever is built without a repository.
	ErrRepositoryRequired = errors.New("chunk repository is required")

	// ErrInvalidK is returned when fewer than one candidate is requested.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidOption is returned by options given out-of-range values.
	ErrInvalidOption = errors.New("invalid retriever option")
)
