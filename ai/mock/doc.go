// Package mock holds in-memory doubles for the ai interfaces.
//
// MockEmbedder produces hash-seeded unit vectors, so a question embedded
// twice lands on the same point and unrelated text lands elsewhere.
// MockGenerator returns a canned completion and records prompts:
//
//	gen := mock.NewMockGenerator(answer.RefusalMessage)
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen)
//	...
//	assert.Contains(t, gen.LastPrompt(), "accrual")
package mock
