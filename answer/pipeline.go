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


package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/retrieval"
	"github.com/poiesic/policyqa/search"
)

// Pipeline answers questions: retrieve, gate, score, select, compose.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	retriever retrieval.Retriever
	composer  *Composer
	config    Config
	monitor   search.RerankMonitor
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig sets the configuration used by Answer.
// Default is DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.config = cfg
		return nil
	}
}

// WithMonitor observes every re-ranking the pipeline performs.
// The monitor must be safe for concurrent use if the pipeline is.
func WithMonitor(monitor search.RerankMonitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = search.NoopMonitor()
		}
		p.monitor = monitor
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
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline over retriever and generator.
func NewPipeline(retriever retrieval.Retriever, generator ai.Generator, opts ...Option) (*Pipeline, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}

	p := &Pipeline{
		retriever: retriever,
		config:    DefaultConfig(),
		monitor:   search.NoopMonitor(),
		logger:    slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	composer, err := NewComposer(generator, p.logger)
	if err != nil {
		return nil, err
	}
	p.composer = composer

	return p, nil
}

// Config returns the pipeline's default configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Answer answers question with the pipeline's configuration.
func (p *Pipeline) Answer(ctx context.Context, question string) (*core.Answer, error) {
	return p.AnswerWithConfig(ctx, question, p.config)
}

// AnswerWithConfig answers question with cfg in place of the pipeline's configuration.
// An empty retrieval result yields RefusalMessage without calling the generator.
func (p *Pipeline) AnswerWithConfig(ctx context.Context, question string, cfg Config) (*core.Answer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	candidates, err := p.retriever.Retrieve(ctx, question, cfg.K, retrieval.WithMMR(cfg.UseMMR))
	if err != nil {
		p.logger.Error("retrieval failed", "err", err)
		return nil, fmt.Errorf("%w: %w: %w", ErrDependencyUnavailable, ErrRetrievalFailed, err)
	}

	if Gate(candidates) == NoCandidates {
		p.logger.Info("no candidates retrieved, refusing", "question_length", len(question))
		return &core.Answer{
			Question: question,
			Text:     RefusalMessage,
			Refused:  true,
		}, nil
	}

	scorer, err := search.NewScorer(
		search.WithNgrams(cfg.UseNgrams),
		search.WithWeightedScoring(cfg.UseWeightedScoring),
		search.WithLogger(p.logger),
	)
	if err != nil {
		return nil, err
	}

	p.monitor.Start(question)
	scored := scorer.ScoreAll(question, candidates)
	p.monitor.AfterScoring(scored)
	best, err := search.SelectWithMonitor(scored, p.monitor)
	if err != nil {
		return nil, err
	}

	sel := core.Selection{
		Candidate: best.Candidate,
		SourceID:  best.Candidate.SourceOrUnknown(),
		Score:     best,
	}
	p.logger.Debug("selected candidate",
		"index", best.Index,
		"source", sel.SourceID,
		"final", best.Final,
		"candidates", len(candidates))

	text, err := p.composer.Compose(ctx, question, sel, cfg.MaxOutputLength)
	if err != nil {
		return nil, err
	}

	return &core.Answer{
		Question:  question,
		Text:      text,
		Citations: []string{sel.SourceID},
	}, nil
}
