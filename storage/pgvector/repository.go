// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

const chunkColumns = `id, content, source, embedding, metadata, inserted_at, updated_at`

// Repository implements storage.ChunkRepository on PostgreSQL with pgvector.
type Repository struct {
	db     *sql.DB
	dims   int
	logger *slog.Logger
}

var _ storage.ChunkRepository = (*Repository)(nil)

// Open connects to PostgreSQL and prepares the chunk table for vectors of
// the given dimension.
func Open(ctx context.Context, dsn string, dims int) (storage.ChunkRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	repo, err := newRepository(ctx, db, dims)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func newRepository(ctx context.Context, db *sql.DB, dims int) (*Repository, error) {
	if dims < 1 {
		return nil, fmt.Errorf("pgvector: embedding dimension must be positive, got %d", dims)
	}
	r := &Repository{
		db:     db,
		dims:   dims,
		logger: slog.Default().With("component", "pgvector"),
	}
	if err := r.createSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func schemaStatements(dims int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS policy_chunks (
			id          BIGINT PRIMARY KEY,
			content     TEXT NOT NULL,
			source      TEXT NOT NULL,
			embedding   vector(%d),
			metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
			inserted_at TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`, dims),
		`CREATE INDEX IF NOT EXISTS policy_chunks_source_idx ON policy_chunks (source)`,
	}
}

func (r *Repository) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(r.dims) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	r.logger.Info("checked/created table policy_chunks", "dims", r.dims)
	return nil
}

// Close closes the database connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// FindSimilar returns chunks ordered by cosine similarity to vector.
func (r *Repository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	if len(vector) != r.dims {
		return nil, fmt.Errorf("%w: %w: %d != %d", storage.ErrInvalidQuery, core.ErrVectorDimension, len(vector), r.dims)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM policy_chunks
		 WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1, id
		 LIMIT $3`,
		pgv.NewVector(vector), minSimilarity, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var results []*core.ScoredChunk
	for rows.Next() {
		var similarity float64
		chunk, err := scanChunk(rows, &similarity)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.ScoredChunk{Chunk: chunk, Score: float32(similarity)})
	}
	return results, rows.Err()
}

// AddChunks upserts chunks.
func (r *Repository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.Source, chunk.Content)
			}
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = now
			}
			if chunk.UpdatedAt.IsZero() {
				chunk.UpdatedAt = chunk.InsertedAt
			}
			metadata, err := marshalMetadata(chunk.Metadata)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO policy_chunks (`+chunkColumns+`)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (id) DO UPDATE SET
				   content = EXCLUDED.content,
				   source = EXCLUDED.source,
				   embedding = EXCLUDED.embedding,
				   metadata = EXCLUDED.metadata,
				   updated_at = EXCLUDED.updated_at`,
				idToInt(chunk.Id), chunk.Content, chunk.Source, vectorArg(chunk.Vector),
				metadata, chunk.InsertedAt, chunk.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %d: %w", chunk.Id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// UpdateChunks replaces existing chunks.
func (r *Repository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunks {
			chunk.UpdatedAt = time.Now().UTC()
			metadata, err := marshalMetadata(chunk.Metadata)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE policy_chunks
				 SET content = $2, source = $3, embedding = $4, metadata = $5, updated_at = $6
				 WHERE id = $1`,
				idToInt(chunk.Id), chunk.Content, chunk.Source, vectorArg(chunk.Vector),
				metadata, chunk.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to update chunk %d: %w", chunk.Id, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("chunk %d: %w", chunk.Id, storage.ErrNotFound)
			}
		}
		return nil
	})
	return chunks, err
}

// DeleteChunks removes chunks by their IDs.
func (r *Repository) DeleteChunks(ctx context.Context, ids ...core.ID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM policy_chunks WHERE id = $1`, idToInt(id))
			if err != nil {
				return fmt.Errorf("failed to delete chunk %d: %w", id, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("chunk %d: %w", id, storage.ErrNotFound)
			}
		}
		return nil
	})
}

// DeleteSource removes every chunk that came from source.
func (r *Repository) DeleteSource(ctx context.Context, source string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM policy_chunks WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source %q: %w", source, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetChunk retrieves a single chunk by ID.
func (r *Repository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM policy_chunks WHERE id = $1`, idToInt(id))
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return chunk, err
}

// GetChunks retrieves the chunks that exist among ids.
func (r *Repository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	for _, id := range ids {
		chunk, err := r.GetChunk(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, chunk)
	}
	return result, nil
}

// GetChunksBySource retrieves every chunk from a source document, in ID order.
func (r *Repository) GetChunksBySource(ctx context.Context, source string) ([]*core.Chunk, error) {
	return r.query(ctx,
		`SELECT `+chunkColumns+` FROM policy_chunks WHERE source = $1 ORDER BY id`, source)
}

// ForEachChunk pages through every chunk in ID order.
func (r *Repository) ForEachChunk(ctx context.Context, batchSize int, fn func(batch []*core.Chunk) error) error {
	if batchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", storage.ErrInvalidQuery, batchSize)
	}

	first := true
	var last int64
	for {
		var (
			batch []*core.Chunk
			err   error
		)
		if first {
			batch, err = r.query(ctx,
				`SELECT `+chunkColumns+` FROM policy_chunks ORDER BY id LIMIT $1`, batchSize)
		} else {
			batch, err = r.query(ctx,
				`SELECT `+chunkColumns+` FROM policy_chunks WHERE id > $1 ORDER BY id LIMIT $2`, last, batchSize)
		}
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		first = false
		last = idToInt(batch[len(batch)-1].Id)
	}
}

// Count returns the number of stored chunks.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM policy_chunks`).Scan(&n)
	return n, err
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]*core.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var result []*core.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, chunk)
	}
	return result, rows.Err()
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("rollback failed", "err", rbErr)
		}
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanChunk reads the chunk columns followed by any extra destinations.
func scanChunk(row scanner, extra ...any) (*core.Chunk, error) {
	var (
		id        int64
		embedding sql.Null[pgv.Vector]
		metadata  []byte
		chunk     core.Chunk
	)
	dest := append([]any{
		&id, &chunk.Content, &chunk.Source, &embedding, &metadata,
		&chunk.InsertedAt, &chunk.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	chunk.Id = intToID(id)
	if embedding.Valid {
		chunk.Vector = embedding.V.Slice()
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if len(chunk.Metadata) == 0 {
			chunk.Metadata = nil
		}
	}
	chunk.InsertedAt = chunk.InsertedAt.UTC()
	chunk.UpdatedAt = chunk.UpdatedAt.UTC()
	return &chunk, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return data, nil
}

// vectorArg maps an empty vector to NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgv.NewVector(v)
}

// idToInt stores a uint64 ID in a signed BIGINT column, preserving all bits.
func idToInt(id core.ID) int64 {
	return int64(id)
}

func intToID(v int64) core.ID {
	return core.ID(uint64(v))
}
