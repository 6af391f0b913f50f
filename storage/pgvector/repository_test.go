package pgvector

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(384)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, stmts[1], "vector(384)")
	assert.Contains(t, stmts[2], "policy_chunks_source_idx")
}

func TestIDConversion(t *testing.T) {
	for _, id := range []core.ID{0, 1, core.ID(1 << 63), core.ID(18446744073709551615)} {
		assert.Equal(t, id, intToID(idToInt(id)))
	}
}

func TestVectorArg(t *testing.T) {
	assert.Nil(t, vectorArg(nil))
	assert.NotNil(t, vectorArg([]float32{1, 2}))
}

func TestMarshalMetadata(t *testing.T) {
	data, err := marshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	data, err = marshalMetadata(map[string]string{"chunk_index": "2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunk_index":"2"}`, string(data))
}

// openTestRepo connects to POLICYQA_TEST_DSN when set. Otherwise it starts
// a throwaway pgvector container, skipping when Docker is unavailable.
func openTestRepo(t *testing.T) storage.ChunkRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("needs PostgreSQL")
	}
	ctx := context.Background()

	dsn := os.Getenv("POLICYQA_TEST_DSN")
	if dsn == "" {
		dsn = startPostgres(t)
	}
	repo, err := Open(ctx, dsn, 3)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = repo.DeleteSource(ctx, "pgtest.md")
		_ = repo.Close()
	})
	return repo
}

func startPostgres(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg17",
		postgres.WithDatabase("policyqa"),
		postgres.WithUsername("policyqa"),
		postgres.WithPassword("policyqa"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Skipf("pgvector container: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestRepository_Integration(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	added, err := repo.AddChunks(ctx,
		&core.Chunk{Content: "east", Source: "pgtest.md", Vector: []float32{1, 0, 0}},
		&core.Chunk{Content: "north", Source: "pgtest.md", Vector: []float32{0, 1, 0}, Metadata: map[string]string{"k": "v"}},
	)
	require.NoError(t, err)
	require.Len(t, added, 2)

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "east", results[0].Chunk.Content)

	got, err := repo.GetChunk(ctx, added[1].Id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, got.Metadata)

	_, err = repo.FindSimilar(ctx, []float32{1, 0}, 0, 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	n, err := repo.DeleteSource(ctx, "pgtest.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
