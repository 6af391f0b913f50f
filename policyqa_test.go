package policyqa

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/policyqa/ai/mock"
	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/eval"
	"github.com/poiesic/policyqa/ingestion"
	"github.com/poiesic/policyqa/reembed"
	"github.com/poiesic/policyqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

const ptoPolicy = "Paid time off accrues at a rate of 1.5 days per month for all full-time employees. " +
	"Unused PTO carries over up to a maximum of 30 days."

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestService(t *testing.T, response string) (*Service, *mock.MockGenerator) {
	t.Helper()
	gen := mock.NewMockGenerator(response)
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen)

	s, err := Open("", InMemory(),
		WithProvider(provider),
		WithLogger(quietLogger()),
		WithAnswerOptions(answer.WithLogger(quietLogger())))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, gen
}

func TestOpen(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "test_db")
		s, err := Open(dir, WithProvider(mock.NewMockProvider()), WithLogger(quietLogger()))
		require.NoError(t, err)
		defer s.Close()

		assert.NotNil(t, s.Repository())
		assert.NotNil(t, s.Provider())
		assert.NotNil(t, s.Retriever())
		assert.NotNil(t, s.Pipeline())
		assert.NotNil(t, s.backend)
		assert.DirExists(t, dir)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		s, err := Open(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, s)
	})

	t.Run("supplied repository", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer backend.Close()

		s, err := Open("ignored", WithRepository(repo), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.Same(t, repo, s.Repository())
		assert.Nil(t, s.backend)
		require.NoError(t, s.Close())
	})

	t.Run("invalid answer options", func(t *testing.T) {
		cfg := answer.DefaultConfig()
		cfg.K = 0
		s, err := Open("", InMemory(),
			WithProvider(mock.NewMockProvider()),
			WithAnswerOptions(answer.WithConfig(cfg)))
		assert.ErrorIs(t, err, answer.ErrInvalidConfig)
		assert.Nil(t, s)
	})
}

func TestService_Close(t *testing.T) {
	provider := mock.NewMockProvider()
	s, err := Open("", InMemory(), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())
}

func TestService_FactoryMethods(t *testing.T) {
	s, _ := openTestService(t, "ok")

	t.Run("ingestion pipeline", func(t *testing.T) {
		p, err := s.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, p)
		p.Release()
	})

	t.Run("reembedder", func(t *testing.T) {
		assert.NotNil(t, s.NewReembedder(reembed.DefaultConfig(), nil))
	})

	t.Run("server", func(t *testing.T) {
		srv, err := s.NewServer()
		require.NoError(t, err)
		assert.NotNil(t, srv.Handler())
	})

	t.Run("eval runner", func(t *testing.T) {
		r, err := s.NewEvalRunner()
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("ablation", func(t *testing.T) {
		a, err := s.NewAblation()
		require.NoError(t, err)
		assert.NotNil(t, a)
	})
}

func TestService_IngestAndAnswer(t *testing.T) {
	ctx := context.Background()
	s, gen := openTestService(t, "Full-time employees accrue 1.5 days of PTO per month.")

	t.Run("refuses on empty store", func(t *testing.T) {
		ans, err := s.Pipeline().Answer(ctx, "What is the PTO accrual rate?")
		require.NoError(t, err)
		assert.True(t, ans.Refused)
		assert.Equal(t, answer.RefusalMessage, ans.Text)
		assert.Equal(t, 0, gen.CallCount())
	})

	p, err := s.NewIngestionPipeline(ingestion.WithPoolSize(1), ingestion.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer p.Release()

	result, err := p.Ingest(ctx, []schema.Document{
		{PageContent: ptoPolicy, Metadata: map[string]any{"source": "Policy 1: PTO"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Stored)

	t.Run("answers with citation", func(t *testing.T) {
		ans, err := s.Pipeline().Answer(ctx, "What is the PTO accrual rate?")
		require.NoError(t, err)
		assert.False(t, ans.Refused)
		assert.Equal(t, []string{"Policy 1: PTO"}, ans.Citations)

		text, sources := answer.SplitSources(ans.Text)
		assert.Equal(t, "Full-time employees accrue 1.5 days of PTO per month.", text)
		assert.Equal(t, []string{"Policy 1: PTO"}, sources)
		assert.Contains(t, gen.LastPrompt(), "1.5 days per month")
	})

	t.Run("reembeds stored chunks", func(t *testing.T) {
		var progress bytes.Buffer
		stats, err := s.NewReembedder(reembed.DefaultConfig(), &progress).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Chunks)
	})

	t.Run("evaluates", func(t *testing.T) {
		r, err := s.NewEvalRunner(eval.WithLogger(quietLogger()))
		require.NoError(t, err)

		report, err := r.Run(ctx, []eval.Item{{
			ID:             "1",
			Query:          "What is the PTO accrual rate?",
			GroundTruth:    "Full-time employees accrue 1.5 days of PTO per month.",
			SourceDocument: "Policy 1: PTO",
		}})
		require.NoError(t, err)
		require.Len(t, report.Results, 1)

		scored := eval.AutoScore(report.Results, eval.DefaultFuzzyThreshold)
		assert.Equal(t, 1, *scored[0].AutoGroundedness)
		assert.Equal(t, 1, *scored[0].AutoCitation)
	})
}
