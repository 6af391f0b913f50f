package hugot

import (
	"errors"

	"github.com/poiesic/policyqa/ai"
)

// Provider pairs a local embedder with any generator.
type Provider struct {
	embedder  *Embedder
	generator ai.Generator
}

// NewProvider returns an ai.AIProvider that embeds locally and generates with
// generator. Closing the provider destroys the embedding session.
func NewProvider(embedder *Embedder, generator ai.Generator) (ai.AIProvider, error) {
	if embedder == nil {
		return nil, errors.New("hugot provider: embedder is required")
	}
	if generator == nil {
		return nil, errors.New("hugot provider: generator is required")
	}
	return &Provider{embedder: embedder, generator: generator}, nil
}

// Embedder returns the local embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the paired generator.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close releases the embedding session.
func (p *Provider) Close() error {
	return p.embedder.Close()
}
