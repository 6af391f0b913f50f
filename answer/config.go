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
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxOutputLength is the token limit written into prompts.
const DefaultMaxOutputLength = 500

// Config selects which pipeline features run for a question.
// It doubles as an ablation configuration.
type Config struct {
	// UseMMR diversifies retrieval with maximal marginal relevance.
	UseMMR bool `json:"use_mmr" yaml:"use_mmr"`

	// UseNgrams enables bigram and trigram phrase matching.
	UseNgrams bool `json:"use_ngrams" yaml:"use_ngrams"`

	// K is the number of candidates requested from retrieval.
	K int `json:"k" yaml:"k" validate:"min=1"`

	// UseWeightedScoring blends all signals; off means raw token overlap.
	UseWeightedScoring bool `json:"use_weighted_scoring" yaml:"use_weighted_scoring"`

	// MaxOutputLength is the output token limit stated in the prompt.
	MaxOutputLength int `json:"max_output_length" yaml:"max_output_length" validate:"min=1"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		UseMMR:             true,
		UseNgrams:          true,
		K:                  20,
		UseWeightedScoring: true,
		MaxOutputLength:    DefaultMaxOutputLength,
	}
}

var validate = validator.New()

// Validate checks the config's field constraints.
// Failures wrap ErrInvalidConfig.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s=%s' (value: %v)", e.Field(), e.Tag(), e.Param(), e.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
