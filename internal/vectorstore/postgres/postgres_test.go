package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qabot/internal/domain"
)

func TestSerializeEmbedding(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0]", serializeEmbedding([]float32{0.5, -1, 0}))
	assert.Equal(t, "[]", serializeEmbedding(nil))
}

func TestStorage_Integration(t *testing.T) {
	dsn := os.Getenv("QABOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QABOT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	s := New(pool)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Clear(ctx))

	chunks := []domain.Chunk{{ID: "a", Index: 0, Text: "east"}, {ID: "b", Index: 1, Start: 5, Text: "north"}}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{{1, 0}, {0, 1}}))

	res, err := s.Search(ctx, []float32{0.1, 0.9}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, chunks[1], res[0].Chunk)

	got, err := s.Chunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, chunks, got)

	require.NoError(t, s.SetMeta(ctx, "fingerprint", "x"))
	v, ok, err := s.GetMeta(ctx, "fingerprint")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	require.NoError(t, s.Clear(ctx))
}
