package mock

import (
	"sync/atomic"

	"github.com/poiesic/policyqa/ai"
)

// MockProvider bundles a MockEmbedder and a MockGenerator.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockGenerator
	closed    atomic.Bool
}

// NewMockProvider answers every prompt with "mock answer".
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockGenerator("mock answer"))
}

func NewMockProviderWithServices(embedder *MockEmbedder, generator *MockGenerator) ai.AIProvider {
	return &MockProvider{embedder: embedder, generator: generator}
}

func (p *MockProvider) Embedder() ai.Embedder   { return p.embedder }
func (p *MockProvider) Generator() ai.Generator { return p.generator }

func (p *MockProvider) Close() error {
	p.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (p *MockProvider) Closed() bool {
	return p.closed.Load()
}

// Mocks exposes the concrete doubles for assertions.
func (p *MockProvider) Mocks() (*MockEmbedder, *MockGenerator) {
	return p.embedder, p.generator
}
