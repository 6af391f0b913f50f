package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultDimensions matches the width of all-MiniLM-L6-v2.
const DefaultDimensions = 384

// MockEmbedder hashes text into stable unit vectors so similarity between
// identical strings is exactly 1. Set EmbedTextFunc or EmbedTextsFunc to
// script failures.
type MockEmbedder struct {
	EmbedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions overrides DefaultDimensions when positive.
	Dimensions int

	mu    sync.Mutex
	calls int
	seen  []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return GenerateDeterministicVector(text, m.width()), nil
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(texts...)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	width := m.width()
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, GenerateDeterministicVector(text, width))
	}
	return out, nil
}

// CallCount counts EmbedText and EmbedTexts calls, not texts.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns every text embedded so far, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

// Reset forgets recorded calls and any scripted behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls, m.seen = 0, nil
	m.EmbedTextFunc, m.EmbedTextsFunc = nil, nil
}

func (m *MockEmbedder) record(texts ...string) {
	m.mu.Lock()
	m.calls++
	m.seen = append(m.seen, texts...)
	m.mu.Unlock()
}

func (m *MockEmbedder) width() int {
	if m.Dimensions > 0 {
		return m.Dimensions
	}
	return DefaultDimensions
}

// GenerateDeterministicVector seeds a linear congruential sequence from the
// FNV-1a hash of text and scales the result to unit length.
func GenerateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	state := h.Sum32()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		state = state*1664525 + 1013904223
		v := float64(state%1000) / 1000
		vec[i] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
