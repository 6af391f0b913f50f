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
	"unicode/utf8"

	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/core"
	"github.com/tmc/langchaingo/prompts"
)

// Composer builds the generation prompt for a selected passage, runs
// generation and appends the citation footer.
type Composer struct {
	generator ai.Generator
	answer    prompts.PromptTemplate
	guardrail prompts.PromptTemplate
	logger    *slog.Logger
}

// NewComposer creates a composer that generates with generator.
func NewComposer(generator ai.Generator, logger *slog.Logger) (*Composer, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if logger == nil {
		logger = slog.Default().With("component", "composer")
	}
	return &Composer{
		generator: generator,
		answer:    prompts.NewPromptTemplate(AnswerTemplate, templateVariables),
		guardrail: prompts.NewPromptTemplate(GuardrailTemplate, templateVariables),
		logger:    logger,
	}, nil
}

// Prompt renders the prompt for question over passage.
// Passages longer than 100 characters use AnswerTemplate, others GuardrailTemplate.
func (c *Composer) Prompt(question, passage string, maxLength int) (string, error) {
	tmpl := c.guardrail
	if utf8.RuneCountInString(passage) > contextThreshold {
		tmpl = c.answer
	}
	return tmpl.Format(map[string]any{
		"context":    passage,
		"question":   question,
		"max_length": maxLength,
	})
}

// Compose generates an answer grounded on sel and cites its source.
// Generator failures wrap ErrDependencyUnavailable and ErrGenerationFailed.
func (c *Composer) Compose(ctx context.Context, question string, sel core.Selection, maxLength int) (string, error) {
	prompt, err := c.Prompt(question, sel.Candidate.Content, maxLength)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		c.logger.Error("generation failed", "source", sel.SourceID, "err", err)
		return "", fmt.Errorf("%w: %w: %w", ErrDependencyUnavailable, ErrGenerationFailed, err)
	}

	return text + Citation(sel.SourceID), nil
}
