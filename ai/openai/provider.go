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
	"fmt"
	"log/slog"

	"github.com/poiesic/policyqa/ai"
)

// Provider pairs an Embedder and a Generator that talk to
// OpenAI-compatible hosts. The two hosts may differ.
type Provider struct {
	embedder  *Embedder
	generator *Generator
	logger    *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and dials both services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("openai provider: %w", err)
	}

	embedder, err := dialEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"generation_host", config.GenerationHost,
		"generation_model", config.GenerationModel)

	return &Provider{embedder: embedder, generator: generator, logger: logger}, nil
}

func (p *Provider) Embedder() ai.Embedder   { return p.embedder }
func (p *Provider) Generator() ai.Generator { return p.generator }

// Close is a no-op; the HTTP clients hold no resources.
func (p *Provider) Close() error {
	return nil
}
