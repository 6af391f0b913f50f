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


package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

// writeBatchSize bounds the number of chunks written in one transaction.
const writeBatchSize = 256

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// newChunkRepository is an internal constructor that returns the concrete type.
func newChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("badger: backend is required")
	}
	return &ChunkRepository{backend: backend}, nil
}

// NewChunkRepository creates a chunk repository on top of backend.
// The backend is not closed when the repository is closed.
func NewChunkRepository(backend *Backend) (storage.ChunkRepository, error) {
	return newChunkRepository(backend)
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// AddChunks stores chunks, replacing any with the same ID.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	for start := 0; start < len(chunks); start += writeBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := chunks[start:min(start+writeBatchSize, len(chunks))]
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for _, chunk := range batch {
				if chunk.Id == 0 {
					chunk.Id = core.ChunkID(chunk.Source, chunk.Content)
				}
				if chunk.InsertedAt.IsZero() {
					chunk.InsertedAt = now
				}
				if chunk.UpdatedAt.IsZero() {
					chunk.UpdatedAt = chunk.InsertedAt
				}

				// A replaced chunk may have moved to another source
				key := makeChunkKey(chunk.Id)
				old, err := readChunk(tx, key)
				if err != nil {
					return err
				}
				if old != nil && old.Source != chunk.Source {
					if err := tx.Delete(makeChunkSourceKey(old.Source, old.Id)); err != nil {
						return err
					}
				}

				if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
					return err
				}
				if err := tx.Set(makeChunkSourceKey(chunk.Source, chunk.Id), storage.MarshalID(chunk.Id)); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return nil, err
		}
	}

	return chunks, nil
}

// UpdateChunks replaces existing chunks.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)

			old, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("chunk %d: %w", chunk.Id, storage.ErrNotFound)
			}

			chunk.UpdatedAt = time.Now().UTC()
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			if old.Source != chunk.Source {
				if err := tx.Delete(makeChunkSourceKey(old.Source, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeChunkSourceKey(chunk.Source, chunk.Id), storage.MarshalID(chunk.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return chunks, err
}

// DeleteChunks removes chunks by their IDs.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeChunkKey(id)

			chunk, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if chunk == nil {
				return fmt.Errorf("chunk %d: %w", id, storage.ErrNotFound)
			}

			if err := tx.Delete(makeChunkSourceKey(chunk.Source, id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteSource removes every chunk that came from source.
func (r *ChunkRepository) DeleteSource(ctx context.Context, source string) (int, error) {
	ids, err := r.sourceIDs(source)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.DeleteChunks(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves multiple chunks by their IDs.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetChunksBySource retrieves every chunk from a source document, in ID order.
func (r *ChunkRepository) GetChunksBySource(ctx context.Context, source string) ([]*core.Chunk, error) {
	ids, err := r.sourceIDs(source)
	if err != nil {
		return nil, err
	}
	return r.GetChunks(ctx, ids...)
}

// ForEachChunk visits every chunk in key order, batchSize at a time.
func (r *ChunkRepository) ForEachChunk(ctx context.Context, batchSize int, fn func(batch []*core.Chunk) error) error {
	if batchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", storage.ErrInvalidQuery, batchSize)
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		batch := make([]*core.Chunk, 0, batchSize)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			batch = append(batch, chunk)
			if len(batch) == batchSize {
				if err := fn(batch); err != nil {
					return err
				}
				batch = make([]*core.Chunk, 0, batchSize)
			}
		}
		if len(batch) > 0 {
			return fn(batch)
		}
		return nil
	}, false)
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// sourceIDs reads the source index for source.
func (r *ChunkRepository) sourceIDs(source string) ([]core.ID, error) {
	var ids []core.ID
	prefix := makePartialChunkSourceKey(source)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) != len(prefix)+8 {
				continue
			}
			ids = append(ids, core.ID(binary.BigEndian.Uint64(key[len(prefix):])))
		}
		return nil
	}, false)
	return ids, err
}

// readChunk reads a chunk by key, returning nil if it doesn't exist.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}
