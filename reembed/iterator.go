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


package reembed

import (
	"context"

	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

const (
	// DefaultBatchSize is the default number of chunks handed to fn at once
	DefaultBatchSize = 100
)

// ChunkIterator walks every stored chunk in batches.
type ChunkIterator struct {
	repo      storage.ChunkRepository
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize values below 1 fall back to DefaultBatchSize.
func NewChunkIterator(repo storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// BatchSize returns the effective batch size.
func (it *ChunkIterator) BatchSize() int {
	return it.batchSize
}

// ForEach calls fn for each batch of chunks.
// Iteration stops on the first error from fn or when ctx is canceled.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return it.repo.ForEachChunk(ctx, it.batchSize, func(batch []*core.Chunk) error {
		if err := fn(batch); err != nil {
			return err
		}
		return ctx.Err()
	})
}
