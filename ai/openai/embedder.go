package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/policyqa/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyEmbedding is returned when the server answers with no vector.
var ErrEmptyEmbedding = errors.New("embedding server returned an empty vector")

// Embedder turns policy text into vectors through an OpenAI-compatible
// /embeddings endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

func dialEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.Token()),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding client for %s: %w", config.EmbeddingHost, err)
	}

	// Chunk text keeps its line breaks in storage; the model sees one line.
	inner, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return wrapEmbedder(inner, config.EmbeddingModel), nil
}

func wrapEmbedder(inner embeddings.Embedder, model string) *Embedder {
	return &Embedder{
		embedder: inner,
		model:    model,
		logger:   slog.Default().With("component", "openai-embedder", "model", model),
	}
}

// NewEmbedder connects to the embedding host named in config.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return dialEmbedder(config)
}

// EmbedText embeds a user question. It uses the query mode of the
// underlying client.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("query embedding failed", "chars", len(text), "err", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vec, nil
}

// EmbedTexts embeds a batch of chunk texts, preserving order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding failed", "batch", len(texts), "err", err)
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed %d texts: server returned %d vectors", len(texts), len(vecs))
	}
	e.logger.Debug("embedded batch", "batch", len(texts), "dims", len(vecs[0]))
	return vecs, nil
}
