package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/ai/mock"
	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/eval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// captureOutput redirects command output to a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldErr, oldNoColor := stdout, stderr, color.NoColor
	stdout, stderr, color.NoColor = &buf, &buf, true
	t.Cleanup(func() {
		stdout, stderr, color.NoColor = oldOut, oldErr, oldNoColor
	})
	return &buf
}

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func writeResults(t *testing.T, path string, results []eval.Result) {
	t.Helper()
	require.NoError(t, eval.WriteJSONFile(path, results))
}

func rawResults() []eval.Result {
	return []eval.Result{
		{
			ID:             "1",
			Query:          "What is the PTO accrual rate?",
			GroundTruth:    "1.5 days per month",
			ExpectedSource: "Policy 1: PTO",
			RAGAnswer:      "PTO accrues at 1.5 days per month.\n\n**Sources:** Policy 1: PTO",
			LatencyMS:      120,
		},
		{
			ID:             "2",
			Query:          "Can I bring my dog to work?",
			GroundTruth:    "Only certified service animals are allowed on site.",
			ExpectedSource: "Policy 4: Facilities",
			RAGAnswer:      answer.RefusalMessage,
			LatencyMS:      80,
			Refused:        true,
		},
	}
}

func TestNewApp_Flags(t *testing.T) {
	app := newApp()

	tests := []struct {
		name    string
		value   string
		envVars []string
	}{
		{"db", "policyqa.db", []string{"POLICYQA_DB"}},
		{"dsn", "", []string{"POLICYQA_DSN"}},
		{"ai-host", "http://localhost:11434/v1", []string{"POLICYQA_AI_HOST"}},
		{"api-key", "", []string{"OPENAI_API_KEY"}},
		{"embedder", "openai", []string{"POLICYQA_EMBEDDER"}},
		{"log-level", "info", []string{"POLICYQA_LOG_LEVEL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := findStringFlag(app.Flags, tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.value, f.Value)
			assert.Equal(t, tt.envVars, f.EnvVars)
		})
	}

	t.Run("commands", func(t *testing.T) {
		var names []string
		for _, cmd := range app.Commands {
			names = append(names, cmd.Name)
		}
		assert.Equal(t, []string{"ingest", "ask", "serve", "reembed", "eval", "autoscore", "ablate", "analyze", "score"}, names)
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		err := newApp().Run([]string{"policyqa", "--log-level", "loud", "ask", "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	for _, level := range []string{"debug", "info", "WARN", "error"} {
		t.Run(level, func(t *testing.T) {
			captureOutput(t)
			err := newApp().Run([]string{"policyqa", "--log-level", level, "ask"})
			require.Error(t, err)
			assert.Equal(t, "question is required", err.Error())
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("loads variables", func(t *testing.T) {
		const key = "POLICYQA_LOADENV_TEST"
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0644))
		t.Cleanup(func() { os.Unsetenv(key) })

		require.NoError(t, loadEnv(path))
		assert.Equal(t, "from-file", os.Getenv(key))
	})

	t.Run("existing variables win", func(t *testing.T) {
		const key = "POLICYQA_LOADENV_PRESET"
		t.Setenv(key, "from-env")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0644))

		require.NoError(t, loadEnv(path))
		assert.Equal(t, "from-env", os.Getenv(key))
	})
}

func TestCommandValidation(t *testing.T) {
	captureOutput(t)
	db := filepath.Join(t.TempDir(), "db")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"ingest needs a directory", []string{"ingest"}, "document directory is required"},
		{"ask needs a question", []string{"ask", "  "}, "question is required"},
		{"ask rejects k of zero", []string{"ask", "--k", "0", "what?"}, "invalid pipeline config"},
		{"reembed batch size", []string{"reembed", "--batch-size", "0"}, "batch-size must be greater than 0"},
		{"reembed report interval", []string{"reembed", "--report-interval", "0"}, "report-interval must be greater than 0"},
		{"reembed retries", []string{"reembed", "--max-retries", "0"}, "max-retries must be greater than 0"},
		{"autoscore threshold", []string{"autoscore", "--threshold", "1.5"}, "must be between 0 and 1"},
		{"eval dataset missing", []string{"eval", "--data", filepath.Join(db, "none.json")}, "evaluation data not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"policyqa", "--db", db}, tt.args...)
			err := newApp().Run(args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("unknown embedder", func(t *testing.T) {
		err := newApp().Run([]string{"policyqa", "--db", db, "--embedder", "magic", "ask", "what?"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown embedder "magic"`)
	})
}

func TestAIConfig(t *testing.T) {
	run := func(t *testing.T, args ...string) *ai.Config {
		t.Helper()
		var cfg *ai.Config
		app := newApp()
		app.Commands = []*cli.Command{{
			Name: "probe",
			Action: func(c *cli.Context) error {
				cfg = aiConfig(c)
				return nil
			},
		}}
		require.NoError(t, app.Run(append(append([]string{"policyqa"}, args...), "probe")))
		return cfg
	}

	t.Run("single host", func(t *testing.T) {
		cfg := run(t, "--ai-host", "http://gpu:8000/v1")
		assert.Equal(t, "http://gpu:8000/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://gpu:8000/v1", cfg.GenerationHost)
		assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	})

	t.Run("separate hosts and key", func(t *testing.T) {
		cfg := run(t,
			"--embedding-host", "http://embed:8080/v1",
			"--generation-host", "https://api.openai.com/v1",
			"--generation-model", "gpt-3.5-turbo",
			"--api-key", "sk-test")
		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "https://api.openai.com/v1", cfg.GenerationHost)
		assert.Equal(t, "gpt-3.5-turbo", cfg.GenerationModel)
		assert.Equal(t, "sk-test", cfg.Token())
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("POLICYQA_AI_HOST", "http://env-host:11434/v1")
		t.Setenv("OPENAI_API_KEY", "sk-env")
		cfg := run(t)
		assert.Equal(t, "http://env-host:11434/v1", cfg.GenerationHost)
		assert.Equal(t, "sk-env", cfg.APIKey)
	})
}

func TestPipelineConfig(t *testing.T) {
	var cfg answer.Config
	app := &cli.App{
		Name: "policyqa",
		Commands: []*cli.Command{{
			Name:  "probe",
			Flags: pipelineFlags(),
			Action: func(c *cli.Context) error {
				cfg = pipelineConfig(c)
				return nil
			},
		}},
	}

	require.NoError(t, app.Run([]string{"policyqa", "probe"}))
	assert.Equal(t, answer.DefaultConfig(), cfg)

	require.NoError(t, app.Run([]string{"policyqa", "probe", "--k", "5", "--no-mmr", "--no-ngrams", "--no-weights"}))
	assert.Equal(t, 5, cfg.K)
	assert.False(t, cfg.UseMMR)
	assert.False(t, cfg.UseNgrams)
	assert.False(t, cfg.UseWeightedScoring)
}

func TestProbeDimensions(t *testing.T) {
	ctx := context.Background()

	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 16
	dims, err := probeDimensions(ctx, embedder)
	require.NoError(t, err)
	assert.Equal(t, 16, dims)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}
	_, err = probeDimensions(ctx, embedder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAutoscoreCommand(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.json")
	scoredPath := filepath.Join(dir, "scored.json")
	csvPath := filepath.Join(dir, "scored.csv")
	writeResults(t, raw, rawResults())

	err := newApp().Run([]string{"policyqa", "autoscore", "--in", raw, "--out", scoredPath, "--csv", csvPath})
	require.NoError(t, err)

	scored, err := eval.LoadResults(scoredPath)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, 1, *scored[0].AutoGroundedness)
	assert.Equal(t, 1, *scored[0].AutoCitation)
	assert.Equal(t, 0, *scored[1].AutoCitation)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, eval.ScoredColumns, rows[0])

	assert.Contains(t, out.String(), "Scored 2 results")
	assert.Contains(t, out.String(), "Citation accuracy: 1/2 (50.0%)")
}

func TestScoreWorkflow(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.json")
	sheet := filepath.Join(dir, "sheet.csv")
	writeResults(t, raw, rawResults())

	require.NoError(t, newApp().Run([]string{"policyqa", "score", "prepare", "--in", raw, "--sheet", sheet}))

	f, err := os.Open(sheet)
	require.NoError(t, err)
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// reviewer fills in the first row only
	rows[1][4], rows[1][5], rows[1][6] = "1", "1", "0"
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, os.WriteFile(sheet, buf.Bytes(), 0644))

	scoredPath := filepath.Join(dir, "scored.json")
	summaryJSON := filepath.Join(dir, "summary.json")
	summaryCSV := filepath.Join(dir, "summary.csv")
	err = newApp().Run([]string{"policyqa", "score", "apply",
		"--in", raw, "--sheet", sheet, "--out", scoredPath,
		"--summary-json", summaryJSON, "--summary-csv", summaryCSV})
	require.NoError(t, err)

	scored, err := eval.LoadResults(scoredPath)
	require.NoError(t, err)
	require.NotNil(t, scored[0].ManualGroundedness)
	assert.Equal(t, 1.0, *scored[0].ManualGroundedness)
	assert.Nil(t, scored[1].ManualGroundedness)

	data, err := os.ReadFile(summaryJSON)
	require.NoError(t, err)
	var summary eval.ManualSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 1, summary.NGrounded)
	assert.Equal(t, 2, summary.NLatency)
	require.NotNil(t, summary.MedianLatencyMS)
	assert.Equal(t, 100.0, *summary.MedianLatencyMS)

	csvData, err := os.ReadFile(summaryCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "metric,n,mean_or_median\n"))
}

func TestAnalyzeCommand(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "ablation_results.json")

	one, zero := 1, 0
	results := map[string][]eval.Result{
		"baseline": {{ID: "1", LatencyMS: 200, AutoGroundedness: &one, AutoCitation: &one, AutoExactMatch: &zero}},
		"small_k":  {{ID: "1", LatencyMS: 90, AutoGroundedness: &zero, AutoCitation: &one, AutoExactMatch: &zero}},
	}
	require.NoError(t, eval.WriteJSONFile(in, results))

	jsonPath := filepath.Join(dir, "summary.json")
	csvPath := filepath.Join(dir, "summary.csv")
	err := newApp().Run([]string{"policyqa", "analyze", "--in", in, "--json", jsonPath, "--csv", csvPath})
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var summaries map[string]eval.ConfigSummary
	require.NoError(t, json.Unmarshal(data, &summaries))
	assert.Equal(t, 1.0, summaries["baseline"].AvgGroundedness)
	assert.Equal(t, 90.0, summaries["small_k"].MedianLatencyMS)

	assert.FileExists(t, csvPath)
	assert.Contains(t, out.String(), "Best groundedness: baseline")
	assert.Contains(t, out.String(), "Fastest: small_k")
}
