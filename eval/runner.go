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


package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/reembed"
)

// Answerer answers a question under a specific pipeline configuration.
// *answer.Pipeline satisfies it.
type Answerer interface {
	AnswerWithConfig(ctx context.Context, question string, cfg answer.Config) (*core.Answer, error)
}

// Result is the outcome of one evaluation question. Manual score fields
// stay nil until a reviewer fills them in; auto score fields are set by
// AutoScore.
type Result struct {
	ID             ItemID  `json:"id"`
	Query          string  `json:"query"`
	GroundTruth    string  `json:"ground_truth"`
	ExpectedSource string  `json:"expected_source"`
	RAGAnswer      string  `json:"rag_answer"`
	LatencyMS      float64 `json:"latency_ms"`
	QueryType      string  `json:"query_type"`
	Refused        bool    `json:"refused,omitempty"`
	Error          string  `json:"error,omitempty"`

	ManualGroundedness *float64 `json:"manual_score_groundedness"`
	ManualCitation     *float64 `json:"manual_score_citation_accuracy"`
	ManualExactMatch   *float64 `json:"manual_score_exact_match"`

	AutoGroundedness       *int     `json:"auto_score_groundedness,omitempty"`
	AutoCitation           *int     `json:"auto_score_citation_accuracy,omitempty"`
	AutoExactMatch         *int     `json:"auto_score_exact_match,omitempty"`
	GroundednessSimilarity *float64 `json:"groundedness_similarity,omitempty"`
	ParsedAnswer           string   `json:"parsed_answer,omitempty"`
	ParsedSources          []string `json:"parsed_sources,omitempty"`
}

// Metrics are latency percentiles over a run, in milliseconds.
type Metrics struct {
	Count int     `json:"count"`
	P50   float64 `json:"p50_latency_ms"`
	P95   float64 `json:"p95_latency_ms"`
}

// Report is a completed run.
type Report struct {
	RunID   string        `json:"run_id"`
	Config  answer.Config `json:"config"`
	Results []Result      `json:"results"`
	Metrics Metrics       `json:"metrics"`
}

// Runner answers dataset items sequentially, in input order.
type Runner struct {
	answerer Answerer
	config   answer.Config
	progress io.Writer
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner) error

// WithConfig sets the pipeline configuration used for every question.
func WithConfig(cfg answer.Config) RunnerOption {
	return func(r *Runner) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		r.config = cfg
		return nil
	}
}

// WithProgress writes a progress line to w while running.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) error {
		if w == nil {
			w = io.Discard
		}
		r.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "eval")
		return nil
	}
}

// NewRunner creates a runner using the baseline configuration.
func NewRunner(answerer Answerer, opts ...RunnerOption) (*Runner, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	r := &Runner{
		answerer: answerer,
		config:   answer.DefaultConfig(),
		progress: io.Discard,
		logger:   slog.Default().With("component", "eval"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run answers every item. A failed question is recorded in Result.Error and
// the run continues; only context cancellation stops it early.
func (r *Runner) Run(ctx context.Context, items []Item) (*Report, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Config:  r.config,
		Results: make([]Result, 0, len(items)),
	}
	logger := r.logger.With("run", report.RunID)
	logger.Info("starting evaluation", "questions", len(items))

	tracker := reembed.NewProgressTracker(r.progress, len(items), 1).WithUnit("questions")
	tracker.Start()

	latencies := make([]float64, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := Result{
			ID:             item.ID,
			Query:          item.Query,
			GroundTruth:    item.GroundTruth,
			ExpectedSource: item.SourceDocument,
			QueryType:      item.QueryType,
		}

		start := time.Now()
		ans, err := r.answerer.AnswerWithConfig(ctx, item.Query, r.config)
		latency := roundTo(float64(time.Since(start).Microseconds())/1000.0, 2)

		result.LatencyMS = latency
		latencies = append(latencies, latency)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("evaluation interrupted at item %s: %w", item.ID, err)
			}
			logger.Error("question failed", "id", item.ID, "err", err)
			result.Error = err.Error()
		} else {
			result.RAGAnswer = ans.Text
			result.Refused = ans.Refused
		}

		report.Results = append(report.Results, result)
		tracker.Increment(1)
		logger.Debug("completed query", "index", i+1, "total", len(items), "latency_ms", latency)
	}
	tracker.Finish()

	report.Metrics = Metrics{
		Count: len(latencies),
		P50:   roundTo(Percentile(latencies, 50), 2),
		P95:   roundTo(Percentile(latencies, 95), 2),
	}
	logger.Info("evaluation complete", "p50_ms", report.Metrics.P50, "p95_ms", report.Metrics.P95)
	return report, nil
}

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks. It returns 0 for no values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = min(max(p, 0), 100)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median is Percentile(values, 50).
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
