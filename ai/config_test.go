package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.GenerationHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.GenerationModel)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 500, cfg.MaxTokens)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.GenerationHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithGenerationHost("https://api.openai.com/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "https://api.openai.com/v1", cfg.GenerationHost)
	})

	t.Run("with hosted models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithGenerationModel("gpt-3.5-turbo"),
			WithAPIKey("sk-test"),
			WithTemperature(0.2),
			WithMaxTokens(256),
			WithMaxRetries(5),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-3.5-turbo", cfg.GenerationModel)
		assert.Equal(t, "sk-test", cfg.Token())
		assert.Equal(t, 0.2, cfg.Temperature)
		assert.Equal(t, 256, cfg.MaxTokens)
		assert.Equal(t, 5, cfg.MaxRetries)
	})
}

func TestConfig_Token(t *testing.T) {
	assert.Equal(t, "none", DefaultConfig().Token())
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host, GenerationHost: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
			assert.Equal(t, tt.want, cfg.GenerationHost)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("normalizes before validating", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.GenerationHost)
	})

	tests := []struct {
		name    string
		opt     ConfigOption
		wantErr string
	}{
		{"missing embedding host", WithEmbeddingHost(""), "EmbeddingHost is required"},
		{"missing generation host", WithGenerationHost(""), "GenerationHost is required"},
		{"missing embedding model", WithEmbeddingModel(""), "EmbeddingModel is required"},
		{"missing generation model", WithGenerationModel(""), "GenerationModel is required"},
		{"temperature too high", WithTemperature(3), "Temperature must be between 0 and 2"},
		{"negative max tokens", WithMaxTokens(-1), "MaxTokens cannot be negative"},
		{"zero retries", WithMaxRetries(0), "MaxRetries must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opt).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
