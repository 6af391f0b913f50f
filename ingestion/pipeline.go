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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/reembed"
	"github.com/poiesic/policyqa/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultBatchSize is the number of chunks sent to the embedder per call.
	DefaultBatchSize = 32

	// ChunkIndexKey is the chunk metadata key holding the chunk's position
	// within its source document.
	ChunkIndexKey = "chunk_index"
)

// Pipeline splits documents into chunks, embeds them concurrently and
// stores them.
type Pipeline struct {
	repository     storage.ChunkRepository
	embedder       ai.Embedder
	splitter       textsplitter.TextSplitter
	pool           *ants.Pool
	batchSize      int
	maxRetries     int
	retryDelay     time.Duration
	replaceSources bool
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidChunking, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithChunking replaces the default splitter with one using the given
// chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		splitter, err := NewSplitter(size, overlap)
		if err != nil {
			return err
		}
		p.splitter = splitter
		return nil
	}
}

// WithSplitter sets a custom text splitter.
func WithSplitter(splitter textsplitter.TextSplitter) Option {
	return func(p *Pipeline) error {
		if splitter == nil {
			return fmt.Errorf("%w: splitter is nil", ErrInvalidChunking)
		}
		p.splitter = splitter
		return nil
	}
}

// WithRetry sets the attempts and base backoff for embedding calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return reembed.ErrInvalidMaxAttempts
		}
		p.maxRetries = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithReplaceSources makes Ingest delete the stored chunks of every source
// it is about to write, so edited documents leave no stale passages behind.
func WithReplaceSources(replace bool) Option {
	return func(p *Pipeline) error {
		p.replaceSources = replace
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	splitter, err := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		repository: repository,
		embedder:   embedder,
		splitter:   splitter,
		pool:       pool,
		batchSize:  DefaultBatchSize,
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Result reports what an ingestion run did.
type Result struct {
	Documents int // Documents received
	Chunks    int // Distinct non-blank chunks produced by splitting
	Stored    int // Chunks embedded and written
	Failed    int // Chunks lost to embedding or storage errors
	Replaced  int // Previously stored chunks removed by WithReplaceSources
}

// IngestDirectory loads every supported file under root and ingests it.
func (p *Pipeline) IngestDirectory(ctx context.Context, root string) (*Result, error) {
	docs, err := LoadDirectory(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, root)
	}
	p.logger.Info("loaded documents", "root", root, "documents", len(docs))
	return p.Ingest(ctx, docs)
}

// Ingest splits docs into chunks, embeds them in batches on the worker pool
// and stores them. Batches that fail are counted in Result.Failed and their
// errors are returned joined; the other batches are still stored.
func (p *Pipeline) Ingest(ctx context.Context, docs []schema.Document) (*Result, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	chunks, err := p.chunkDocuments(docs)
	if err != nil {
		return nil, err
	}

	result := &Result{Documents: len(docs), Chunks: len(chunks)}
	if len(chunks) == 0 {
		p.logger.Warn("documents produced no chunks", "documents", len(docs))
		return result, nil
	}

	if p.replaceSources {
		removed, err := p.removeSources(ctx, chunks)
		result.Replaced = removed
		if err != nil {
			return result, err
		}
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		stored atomic.Int64
	)
	fail := func(batch []*core.Chunk, err error) {
		mu.Lock()
		errs = append(errs, err)
		result.Failed += len(batch)
		mu.Unlock()
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		batch := chunks[start:min(start+p.batchSize, len(chunks))]

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.storeBatch(ctx, batch); err != nil {
				p.logger.Error("error storing batch", "size", len(batch), "err", err)
				fail(batch, err)
				return
			}
			stored.Add(int64(len(batch)))
		})
		if submitErr != nil {
			wg.Done()
			fail(batch, fmt.Errorf("failed to schedule batch: %w", submitErr))
		}
	}
	wg.Wait()

	result.Stored = int(stored.Load())
	p.logger.Info("ingestion complete",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"stored", result.Stored,
		"failed", result.Failed)

	return result, errors.Join(errs...)
}

func (p *Pipeline) storeBatch(ctx context.Context, batch []*core.Chunk) error {
	if err := reembed.EmbedChunks(ctx, p.embedder, batch, p.maxRetries, p.retryDelay); err != nil {
		return err
	}
	if _, err := p.repository.AddChunks(ctx, batch...); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// chunkDocuments splits each document and returns one chunk per distinct
// (source, text) pair. Pages of the same source share one chunk index
// sequence.
func (p *Pipeline) chunkDocuments(docs []schema.Document) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	seen := make(map[core.ID]struct{})
	nextIndex := make(map[string]int)

	for _, doc := range docs {
		source := documentSource(doc)
		pieces, err := p.splitter.SplitText(doc.PageContent)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", source, err)
		}

		for _, piece := range pieces {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			id := core.ChunkID(source, piece)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			metadata := stringMetadata(doc.Metadata)
			metadata[ChunkIndexKey] = strconv.Itoa(nextIndex[source])
			nextIndex[source]++

			chunks = append(chunks, &core.Chunk{
				Id:       id,
				Content:  piece,
				Source:   source,
				Metadata: metadata,
			})
		}
	}
	return chunks, nil
}

func (p *Pipeline) removeSources(ctx context.Context, chunks []*core.Chunk) (int, error) {
	done := make(map[string]struct{})
	removed := 0
	for _, chunk := range chunks {
		if _, ok := done[chunk.Source]; ok {
			continue
		}
		done[chunk.Source] = struct{}{}

		n, err := p.repository.DeleteSource(ctx, chunk.Source)
		if err != nil {
			return removed, fmt.Errorf("failed to replace source %s: %w", chunk.Source, err)
		}
		if n > 0 {
			p.logger.Debug("replaced source", "source", chunk.Source, "removed", n)
		}
		removed += n
	}
	return removed, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func documentSource(doc schema.Document) string {
	if s, ok := doc.Metadata[SourceKey].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return core.UnknownSource
}

// stringMetadata copies loader metadata except the source, which the chunk
// carries in its own field.
func stringMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		if k == SourceKey || v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
