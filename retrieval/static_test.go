package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/policyqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRetriever(t *testing.T) {
	ctx := context.Background()
	r := NewStaticRetriever(
		core.Candidate{Content: "a", SourceID: "1"},
		core.Candidate{Content: "b", SourceID: "2"},
		core.Candidate{Content: "c", SourceID: "3"},
	)

	t.Run("returns first k", func(t *testing.T) {
		got, err := r.Retrieve(ctx, "q", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, []string{got[0].SourceID, got[1].SourceID})
	})

	t.Run("k beyond list", func(t *testing.T) {
		got, err := r.Retrieve(ctx, "q", 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("result is a copy", func(t *testing.T) {
		got, err := r.Retrieve(ctx, "q", 1)
		require.NoError(t, err)
		got[0].Content = "changed"
		assert.Equal(t, "a", r.Candidates[0].Content)
	})

	t.Run("records options", func(t *testing.T) {
		s := NewStaticRetriever()
		_, _ = s.Retrieve(ctx, "first", 5)
		_, _ = s.Retrieve(ctx, "second", 3, WithMMR(false))

		calls := s.Calls()
		require.Len(t, calls, 2)
		assert.True(t, calls[0].Options.UseMMR)
		assert.Equal(t, "second", calls[1].Query)
		assert.Equal(t, 3, calls[1].K)
		assert.False(t, calls[1].Options.UseMMR)
	})

	t.Run("configured error", func(t *testing.T) {
		boom := errors.New("index offline")
		s := &StaticRetriever{Err: boom}
		_, err := s.Retrieve(ctx, "q", 1)
		assert.ErrorIs(t, err, boom)
	})
}
