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


package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

const (
	defaultLambda          = 0.5
	defaultFetchMultiplier = 4
	minFetchK              = 20
	// Cosine similarity never drops below -1, so the default keeps every hit.
	defaultMinSimilarity = -1
)

// VectorRetriever embeds queries and searches a chunk repository.
// It is safe for concurrent use.
type VectorRetriever struct {
	embedder        ai.Embedder
	repository      storage.ChunkRepository
	lambda          float32
	fetchMultiplier int
	minSimilarity   float32
	logger          *slog.Logger
}

// Option configures a VectorRetriever.
type Option func(*VectorRetriever) error

// WithLambda sets the MMR relevance/diversity trade-off in [0,1].
// Default is 0.5.
func WithLambda(lambda float32) Option {
	return func(r *VectorRetriever) error {
		if lambda < 0 || lambda > 1 {
			return fmt.Errorf("%w: lambda %v outside [0,1]", ErrInvalidOption, lambda)
		}
		r.lambda = lambda
		return nil
	}
}

// WithFetchMultiplier sets how many candidates per requested result MMR considers.
// Default is 4.
func WithFetchMultiplier(m int) Option {
	return func(r *VectorRetriever) error {
		if m < 1 {
			return fmt.Errorf("%w: fetch multiplier must be positive, got %d", ErrInvalidOption, m)
		}
		r.fetchMultiplier = m
		return nil
	}
}

// WithMinSimilarity drops hits below the given cosine similarity.
// Default keeps every hit.
func WithMinSimilarity(min float32) Option {
	return func(r *VectorRetriever) error {
		r.minSimilarity = min
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *VectorRetriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewVectorRetriever creates a retriever over repository using embedder for queries.
func NewVectorRetriever(embedder ai.Embedder, repository storage.ChunkRepository, opts ...Option) (*VectorRetriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	r := &VectorRetriever{
		embedder:        embedder,
		repository:      repository,
		lambda:          defaultLambda,
		fetchMultiplier: defaultFetchMultiplier,
		minSimilarity:   defaultMinSimilarity,
		logger:          slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to k candidates for query.
// With MMR on, max(k*multiplier, 20) hits are fetched and diversified down to k.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int, opts ...RetrieveOption) ([]core.Candidate, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	o := ResolveOptions(opts...)

	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	vec = core.NormalizeVector(vec)

	fetchK := k
	if o.UseMMR {
		fetchK = max(k*r.fetchMultiplier, minFetchK)
	}

	hits, err := r.repository.FindSimilar(ctx, vec, r.minSimilarity, fetchK)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	if o.UseMMR {
		hits = maximalMarginalRelevance(hits, k, r.lambda)
	} else if len(hits) > k {
		hits = hits[:k]
	}

	candidates := make([]core.Candidate, 0, len(hits))
	for _, hit := range hits {
		c := core.Candidate{
			Content:    hit.Chunk.Content,
			SourceID:   hit.Chunk.Source,
			Similarity: hit.Score,
		}
		c.SourceID = c.SourceOrUnknown()
		candidates = append(candidates, c)
	}

	r.logger.Debug("retrieved candidates",
		"k", k,
		"fetched", fetchK,
		"mmr", o.UseMMR,
		"returned", len(candidates))

	return candidates, nil
}

var _ Retriever = (*VectorRetriever)(nil)
