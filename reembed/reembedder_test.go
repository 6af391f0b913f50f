package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/policyqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      4,
		ReportInterval: 4,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func TestReembedder_Run(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	added := seedChunks(t, repo, 10)

	var out bytes.Buffer
	stats, err := NewReembedder(repo, &mockEmbedder{}, testConfig(), &out).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Chunks)

	for _, c := range added {
		stored, err := repo.GetChunk(ctx, c.Id)
		require.NoError(t, err)
		assert.InDelta(t, 1.0/3.0, stored.Vector[0], 1e-6)
		assert.Equal(t, c.Content, stored.Content)
		assert.Equal(t, c.Source, stored.Source)
	}

	output := out.String()
	assert.Contains(t, output, "Starting reembedding of 10 chunks (batch size: 4)")
	assert.Contains(t, output, "Reembedding complete. Processed 10 chunks")
}

func TestReembedder_EmptyDatabase(t *testing.T) {
	repo := setupTestRepo(t)

	var out bytes.Buffer
	stats, err := NewReembedder(repo, &mockEmbedder{}, nil, &out).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Chunks)
	assert.Contains(t, out.String(), "No chunks found")
}

func TestReembedder_ContextCancellation(t *testing.T) {
	repo := setupTestRepo(t)
	seedChunks(t, repo, 12)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	embedder := &mockEmbedder{embedTextsFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		cancel()
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	}}

	stats, err := NewReembedder(repo, embedder, testConfig(), nil).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, stats.Chunks, 12)
}

func TestReembedder_EmbeddingError(t *testing.T) {
	repo := setupTestRepo(t)
	seedChunks(t, repo, 5)

	embedder := &mockEmbedder{embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("model not loaded")
	}}

	_, err := NewReembedder(repo, embedder, testConfig(), nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestConfig_Defaults(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, 100, cfg.BatchSize)
		assert.Equal(t, 100, cfg.ReportInterval)
		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, time.Second, cfg.RetryDelay)
	})

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		assert.Equal(t, DefaultConfig(), cfg.withDefaults())
	})

	t.Run("zero fields filled, set fields kept", func(t *testing.T) {
		in := &Config{BatchSize: 7, RetryDelay: -time.Second}
		got := in.withDefaults()
		assert.Equal(t, 7, got.BatchSize)
		assert.Equal(t, 100, got.ReportInterval)
		assert.Equal(t, 3, got.MaxRetries)
		assert.Equal(t, time.Second, got.RetryDelay)
		assert.Equal(t, -time.Second, in.RetryDelay, "input is not modified")
	})
}

func TestReembedder_ProgressTracking(t *testing.T) {
	repo := setupTestRepo(t)
	seedChunks(t, repo, 8)

	var out bytes.Buffer
	_, err := NewReembedder(repo, &mockEmbedder{}, testConfig(), &out).Run(context.Background())
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Progress: 4/8")
	assert.Contains(t, output, "Progress: 8/8 (100.0%)")
	assert.Contains(t, output, "chunks/s")
}

func TestReembedder_PreservesMetadata(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	added, err := repo.AddChunks(ctx, &core.Chunk{
		Content:  "Employees accrue 1.5 days of PTO per month.",
		Source:   "policies/pto.md",
		Metadata: map[string]string{"chunk_index": "0"},
	})
	require.NoError(t, err)

	_, err = NewReembedder(repo, &mockEmbedder{}, testConfig(), nil).Run(ctx)
	require.NoError(t, err)

	stored, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "0", stored.Metadata["chunk_index"])
	assert.Len(t, stored.Vector, 3)
}
