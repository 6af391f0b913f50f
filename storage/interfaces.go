package storage

import (
	"context"

	"github.com/poiesic/policyqa/core"
)

// ChunkRepository stores policy chunks and their embeddings.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error)

	// AddChunks stores one or more chunks.
	// Chunks with ID=0 get a content-derived ID. Storing a chunk whose ID
	// already exists replaces it. Sets InsertedAt if not already set.
	// Returns the chunks with IDs and timestamps populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunks replaces existing chunks, typically with new vectors.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// DeleteChunks removes chunks by their IDs.
	// Returns ErrNotFound if any chunk doesn't exist.
	DeleteChunks(ctx context.Context, ids ...core.ID) error

	// DeleteSource removes every chunk that came from source.
	// Returns the number of chunks removed.
	DeleteSource(ctx context.Context, source string) (int, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetChunksBySource retrieves every chunk from a source document.
	GetChunksBySource(ctx context.Context, source string) ([]*core.Chunk, error)

	// ForEachChunk calls fn with successive batches of at most batchSize chunks
	// until every chunk has been visited or fn returns an error.
	ForEachChunk(ctx context.Context, batchSize int, fn func(batch []*core.Chunk) error) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
