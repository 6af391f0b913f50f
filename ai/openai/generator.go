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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/policyqa/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultRetryBackoff = 500 * time.Millisecond

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	maxRetries  int
	backoff     time.Duration
	logger      *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}

	return newGeneratorWithModel(client, config), nil
}

func newGeneratorWithModel(client llms.Model, config *ai.Config) *Generator {
	retries := config.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Generator{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		maxRetries:  retries,
		backoff:     defaultRetryBackoff,
		logger:      slog.Default().With("component", "openai-generator"),
	}
}

// NewGenerator creates a new answer generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate sends prompt as a single user message and returns the completion.
// Transport failures are retried with linear backoff up to maxRetries attempts.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * g.backoff):
			}
		}

		completion, err := llms.GenerateFromSinglePrompt(ctx, g.client, prompt, opts...)
		if err == nil {
			g.logger.Debug("generated completion",
				"prompt_length", len(prompt),
				"completion_length", len(completion),
				"attempt", attempt+1)
			return cleanCompletion(completion), nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.logger.Warn("generation failed", "attempt", attempt+1, "err", err)
	}

	g.logger.Error("generation failed after retries", "attempts", g.maxRetries, "err", lastErr)
	return "", fmt.Errorf("generation failed after %d attempts: %w", g.maxRetries, lastErr)
}
