package ai

import "context"

// Embedder maps text to vectors. Vectors from one Embedder share a width;
// callers normalize them before storage. Implementations must be safe
// for concurrent use.
type Embedder interface {
	// EmbedText embeds a single question.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch of chunk texts. The result is index-aligned
	// with texts and an empty batch yields an empty result.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator completes a grounded prompt. Callers expect deterministic
// output, so implementations should sample at temperature 0 unless
// configured otherwise.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AIProvider hands out the services a Service needs and owns their
// lifetime.
type AIProvider interface {
	Embedder() Embedder
	Generator() Generator
	Close() error
}
