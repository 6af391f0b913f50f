package eval

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/policyqa/ai/mock"
	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerFunc func(ctx context.Context, question string, cfg answer.Config) (*core.Answer, error)

func (f answerFunc) AnswerWithConfig(ctx context.Context, question string, cfg answer.Config) (*core.Answer, error) {
	return f(ctx, question, cfg)
}

// recordingAnswerer remembers the config each question ran under.
type recordingAnswerer struct {
	mu      sync.Mutex
	configs []answer.Config
	text    string
}

func (r *recordingAnswerer) AnswerWithConfig(_ context.Context, question string, cfg answer.Config) (*core.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	return &core.Answer{Question: question, Text: r.text}, nil
}

func testItems() []Item {
	return []Item{
		{ID: "1", Query: "How many PTO days accrue per month?", GroundTruth: "Employees accrue 1.5 days of PTO per month.", SourceDocument: "policies/pto.md", QueryType: "factual"},
		{ID: "2", Query: "Who approves remote work?", GroundTruth: "The line manager", SourceDocument: "policies/remote.md", QueryType: "procedural"},
	}
}

func TestNewRunner(t *testing.T) {
	_, err := NewRunner(nil)
	assert.ErrorIs(t, err, ErrAnswererRequired)

	cfg := answer.DefaultConfig()
	cfg.K = 0
	_, err = NewRunner(&recordingAnswerer{}, WithConfig(cfg))
	assert.ErrorIs(t, err, answer.ErrInvalidConfig)
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	retriever := retrieval.NewStaticRetriever(core.Candidate{
		Content:  "Employees accrue 1.5 days of PTO per month of service.",
		SourceID: "policies/pto.md",
	})
	generator := mock.NewMockGenerator("Employees accrue 1.5 days of PTO per month.")
	pipeline, err := answer.NewPipeline(retriever, generator)
	require.NoError(t, err)

	var progress bytes.Buffer
	runner, err := NewRunner(pipeline, WithProgress(&progress))
	require.NoError(t, err)

	report, err := runner.Run(ctx, testItems())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, answer.DefaultConfig(), report.Config)
	require.Len(t, report.Results, 2)
	assert.Equal(t, ItemID("1"), report.Results[0].ID)
	assert.Equal(t, ItemID("2"), report.Results[1].ID)
	assert.Equal(t, "policies/pto.md", report.Results[0].ExpectedSource)
	assert.Contains(t, report.Results[0].RAGAnswer, "**Sources:** policies/pto.md")
	assert.Nil(t, report.Results[0].ManualGroundedness)
	assert.Nil(t, report.Results[0].AutoGroundedness)
	for _, r := range report.Results {
		assert.GreaterOrEqual(t, r.LatencyMS, 0.0)
		assert.Empty(t, r.Error)
	}

	assert.Equal(t, 2, report.Metrics.Count)
	assert.LessOrEqual(t, report.Metrics.P50, report.Metrics.P95)
	assert.Equal(t, 2, generator.CallCount())
	assert.Contains(t, progress.String(), "2/2")
	assert.Contains(t, progress.String(), "questions/s")
}

func TestRunner_Run_UsesConfig(t *testing.T) {
	cfg := answer.DefaultConfig()
	cfg.K = 5
	cfg.UseMMR = false

	answerer := &recordingAnswerer{text: "ok"}
	runner, err := NewRunner(answerer, WithConfig(cfg))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), testItems())
	require.NoError(t, err)
	require.Len(t, answerer.configs, 2)
	for _, got := range answerer.configs {
		assert.Equal(t, cfg, got)
	}
}

func TestRunner_Run_Refusal(t *testing.T) {
	pipeline, err := answer.NewPipeline(retrieval.NewStaticRetriever(), mock.NewMockGenerator("unused"))
	require.NoError(t, err)
	runner, err := NewRunner(pipeline)
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), testItems()[:1])
	require.NoError(t, err)
	assert.True(t, report.Results[0].Refused)
	assert.Equal(t, answer.RefusalMessage, report.Results[0].RAGAnswer)
}

func TestRunner_Run_Failures(t *testing.T) {
	t.Run("failed question is recorded", func(t *testing.T) {
		calls := 0
		answerer := answerFunc(func(_ context.Context, q string, _ answer.Config) (*core.Answer, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("generator offline")
			}
			return &core.Answer{Question: q, Text: "fine"}, nil
		})
		runner, err := NewRunner(answerer)
		require.NoError(t, err)

		report, err := runner.Run(context.Background(), testItems())
		require.NoError(t, err)
		assert.Equal(t, "generator offline", report.Results[0].Error)
		assert.Empty(t, report.Results[0].RAGAnswer)
		assert.Equal(t, "fine", report.Results[1].RAGAnswer)
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		answerer := answerFunc(func(ctx context.Context, q string, _ answer.Config) (*core.Answer, error) {
			cancel()
			return nil, ctx.Err()
		})
		runner, err := NewRunner(answerer)
		require.NoError(t, err)

		report, err := runner.Run(ctx, testItems())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, report.Results)
	})

	t.Run("invalid items", func(t *testing.T) {
		runner, err := NewRunner(&recordingAnswerer{})
		require.NoError(t, err)
		_, err = runner.Run(context.Background(), []Item{{ID: "1"}})
		assert.ErrorIs(t, err, ErrInvalidItem)
	})
}

func TestPercentile(t *testing.T) {
	values := []float64{40, 10, 30, 20}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{50, 25},
		{95, 38.5},
		{100, 40},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(values, tt.p), 1e-9, "p%v", tt.p)
	}

	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 7.0, Median([]float64{7}))
	assert.Equal(t, []float64{40, 10, 30, 20}, values, "input must not be reordered")
}
