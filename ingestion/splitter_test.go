package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter(t *testing.T) {
	t.Run("splits on paragraphs first", func(t *testing.T) {
		s, err := NewSplitter(60, 0)
		require.NoError(t, err)

		parts, err := s.SplitText(ptoPolicy)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(parts), 3)
		assert.Equal(t, "Paid Time Off", parts[0])
		for _, p := range parts {
			assert.LessOrEqual(t, len([]rune(p)), 60)
		}
	})

	t.Run("long text respects chunk size", func(t *testing.T) {
		s, err := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
		require.NoError(t, err)

		text := strings.Repeat("policy ", 200)
		parts, err := s.SplitText(text)
		require.NoError(t, err)
		assert.Greater(t, len(parts), 1)
		for _, p := range parts {
			assert.LessOrEqual(t, len([]rune(p)), DefaultChunkSize)
		}
	})

	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidChunking)
		})
	}
}
