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
	"fmt"
	"time"

	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

// EmbedChunks embeds the content of chunks in a single batch call, retrying
// failed calls, and stores the normalized vectors on the chunks in place.
func EmbedChunks(ctx context.Context, embedder ai.Embedder, chunks []*core.Chunk, maxRetries int, retryBaseDelay time.Duration) error {
	if len(chunks) == 0 {
		return nil
	}
	if embedder == nil {
		return ErrEmbedderRequired
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = embedder.EmbedTexts(ctx, texts)
		return err
	}, maxRetries, retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCount, len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = core.NormalizeVector(embeddings[i])
	}
	return nil
}

// BatchProcessor re-embeds batches of stored chunks.
type BatchProcessor struct {
	repo           storage.ChunkRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ChunkRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds chunks and writes the new vectors back to the repository.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := EmbedChunks(ctx, bp.embedder, chunks, bp.maxRetries, bp.retryBaseDelay); err != nil {
		return err
	}

	if _, err := bp.repo.UpdateChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	return nil
}
