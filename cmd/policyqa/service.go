package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/policyqa"
	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/ai/hugot"
	"github.com/poiesic/policyqa/ai/openai"
	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/storage/pgvector"
	"github.com/urfave/cli/v2"
)

const dimensionProbe = "dimension probe"

// aiConfig builds the provider config from the global flags.
func aiConfig(c *cli.Context) *ai.Config {
	host := c.String("ai-host")
	embeddingHost := c.String("embedding-host")
	if embeddingHost == "" {
		embeddingHost = host
	}
	generationHost := c.String("generation-host")
	if generationHost == "" {
		generationHost = host
	}

	return ai.NewConfig(
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithGenerationHost(generationHost),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGenerationModel(c.String("generation-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
}

// newProvider builds the AI provider selected by --embedder.
func newProvider(c *cli.Context) (ai.AIProvider, error) {
	config := aiConfig(c)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	switch strings.ToLower(c.String("embedder")) {
	case "openai":
		return openai.NewProvider(config)
	case "local":
		generator, err := openai.NewGenerator(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		embedder, err := hugot.NewEmbedder(c.String("model-dir"), "")
		if err != nil {
			return nil, fmt.Errorf("failed to create local embedder: %w", err)
		}
		provider, err := hugot.NewProvider(embedder, generator)
		if err != nil {
			embedder.Close()
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown embedder %q: must be one of openai, local", c.String("embedder"))
	}
}

// openService opens the chunk store and provider selected by the global flags.
// --dsn selects pgvector; otherwise Badger is opened at --db.
func openService(c *cli.Context) (*policyqa.Service, error) {
	provider, err := newProvider(c)
	if err != nil {
		return nil, err
	}
	opts := []policyqa.ServiceOption{policyqa.WithProvider(provider)}

	if dsn := c.String("dsn"); dsn != "" {
		dims, err := probeDimensions(c.Context, provider.Embedder())
		if err != nil {
			provider.Close()
			return nil, err
		}
		repo, err := pgvector.Open(c.Context, dsn, dims)
		if err != nil {
			provider.Close()
			return nil, err
		}
		opts = append(opts, policyqa.WithRepository(repo))
	}

	s, err := policyqa.Open(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, nil
}

// probeDimensions embeds a short text to learn the embedder's vector size.
func probeDimensions(ctx context.Context, embedder ai.Embedder) (int, error) {
	vec, err := embedder.EmbedText(ctx, dimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("failed to probe embedding dimensions: %w", err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("embedder returned an empty vector")
	}
	return len(vec), nil
}

// pipelineConfig applies the pipeline flags to the default config.
func pipelineConfig(c *cli.Context) answer.Config {
	cfg := answer.DefaultConfig()
	cfg.K = c.Int("k")
	cfg.UseMMR = !c.Bool("no-mmr")
	cfg.UseNgrams = !c.Bool("no-ngrams")
	cfg.UseWeightedScoring = !c.Bool("no-weights")
	return cfg
}
