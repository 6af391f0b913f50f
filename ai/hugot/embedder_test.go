package hugot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/policyqa/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds in order", func(t *testing.T) {
		e := newEmbedder(func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, s := range texts {
				out[i] = []float32{float32(len(s))}
			}
			return out, nil
		}, nil)

		vecs, err := e.EmbedTexts(ctx, []string{"ab", "abcd"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{2}, {4}}, vecs)

		vec, err := e.EmbedText(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []float32{3}, vec)
	})

	t.Run("count mismatch is an error", func(t *testing.T) {
		e := newEmbedder(func(texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}, nil)

		_, err := e.EmbedTexts(ctx, []string{"a", "b"})
		require.Error(t, err)
	})

	t.Run("pipeline error is wrapped", func(t *testing.T) {
		boom := errors.New("onnx failure")
		e := newEmbedder(func([]string) ([][]float32, error) { return nil, boom }, nil)

		_, err := e.EmbedText(ctx, "a")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("close destroys once", func(t *testing.T) {
		destroyed := 0
		e := newEmbedder(func(texts []string) ([][]float32, error) { return nil, nil }, func() error {
			destroyed++
			return nil
		})

		require.NoError(t, e.Close())
		require.NoError(t, e.Close())
		assert.Equal(t, 1, destroyed)

		_, err := e.EmbedText(ctx, "a")
		assert.ErrorIs(t, err, ErrEmbedderClosed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		e := newEmbedder(func(texts []string) ([][]float32, error) { return [][]float32{{1}}, nil }, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := e.EmbedText(cctx, "a")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPrepareModel_Existing(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "org_model")
	require.NoError(t, os.MkdirAll(want, 0755))

	got, err := prepareModel(dir, "org/model")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestProvider(t *testing.T) {
	e := newEmbedder(func(texts []string) ([][]float32, error) { return nil, nil }, nil)
	gen := mock.NewMockGenerator("ok")

	p, err := NewProvider(e, gen)
	require.NoError(t, err)
	assert.Same(t, e, p.Embedder())
	assert.Same(t, gen, p.Generator())
	require.NoError(t, p.Close())

	_, err = NewProvider(nil, gen)
	require.Error(t, err)
	_, err = NewProvider(e, nil)
	require.Error(t, err)
}

func TestNewEmbedder_Download(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping local embedder test in short mode (requires model download)")
	}

	e, err := NewEmbedder(t.TempDir(), DefaultModelName)
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.EmbedText(context.Background(), "Employees accrue paid time off monthly.")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}
