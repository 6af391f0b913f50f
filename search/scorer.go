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


package search

import (
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/policyqa/core"
)

// Composite weights. They sum to 1.0 so the final score stays in [0,1].
const (
	WeightTokenOverlap = 0.35
	WeightPhrase       = 0.25
	WeightTerm         = 0.20
	WeightCompleteness = 0.20
)

// completenessTokens is the token count at which a passage counts as complete.
const completenessTokens = 100

// Scorer computes lexical relevance signals between a question and retrieved passages.
// A Scorer holds no per-request state and is safe for concurrent use.
type Scorer struct {
	useNgrams          bool
	useWeightedScoring bool
	logger             *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer) error

// WithNgrams enables or disables phrase matching.
// Default is enabled.
func WithNgrams(enabled bool) Option {
	return func(s *Scorer) error {
		s.useNgrams = enabled
		return nil
	}
}

// WithWeightedScoring chooses between the weighted composite and raw token overlap
// as the final score. Default is weighted.
func WithWeightedScoring(enabled bool) Option {
	return func(s *Scorer) error {
		s.useWeightedScoring = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScorer creates a new scorer.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		useNgrams:          true,
		useWeightedScoring: true,
		logger:             slog.Default().With("component", "scorer"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// questionFeatures holds the parts of a question compared against every passage.
type questionFeatures struct {
	tokens   TokenSet
	bigrams  TokenSet
	trigrams TokenSet
	keyTerms []string
}

func (s *Scorer) analyze(question string) questionFeatures {
	f := questionFeatures{
		tokens:   Tokenize(question),
		keyTerms: KeyTerms(question),
	}
	if s.useNgrams {
		f.bigrams = NGrams(question, 2)
		f.trigrams = NGrams(question, 3)
	}
	return f
}

// Score computes the score vector for a single candidate.
func (s *Scorer) Score(question string, candidate core.Candidate) core.ScoreVector {
	return s.score(s.analyze(question), candidate, 0)
}

// ScoreAll scores every candidate against the question.
// The result is in retrieval order with Index set to each candidate's position.
func (s *Scorer) ScoreAll(question string, candidates []core.Candidate) []core.ScoreVector {
	features := s.analyze(question)
	scored := make([]core.ScoreVector, len(candidates))
	for i, c := range candidates {
		scored[i] = s.score(features, c, i)
	}
	s.logger.Debug("scored candidates", "count", len(scored), "tokens", len(features.tokens))
	return scored
}

func (s *Scorer) score(q questionFeatures, candidate core.Candidate, index int) core.ScoreVector {
	docTokens := Tokenize(candidate.Content)

	sv := core.ScoreVector{
		Candidate:    candidate,
		Index:        index,
		TokenOverlap: ratio(q.tokens.IntersectionSize(docTokens), len(q.tokens)),
		TermScore:    termScore(q.keyTerms, candidate.Content),
		Completeness: math.Min(float64(len(docTokens))/completenessTokens, 1.0),
	}

	if s.useNgrams {
		bigram := ratio(q.bigrams.IntersectionSize(NGrams(candidate.Content, 2)), len(q.bigrams))
		trigram := ratio(q.trigrams.IntersectionSize(NGrams(candidate.Content, 3)), len(q.trigrams))
		sv.PhraseScore = (bigram + trigram) / 2
	}

	if s.useWeightedScoring {
		sv.Final = WeightTokenOverlap*sv.TokenOverlap +
			WeightPhrase*sv.PhraseScore +
			WeightTerm*sv.TermScore +
			WeightCompleteness*sv.Completeness
	} else {
		sv.Final = sv.TokenOverlap
	}

	return sv
}

// termScore is the fraction of key terms found anywhere in the passage text.
func termScore(keyTerms []string, content string) float64 {
	if len(keyTerms) == 0 {
		return 0
	}
	lowered := strings.ToLower(content)
	hits := 0
	for _, term := range keyTerms {
		if strings.Contains(lowered, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(keyTerms))
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
