package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qabot/internal/domain"
)

func TestStorage_UpsertSearchClear(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))

	chunks := []domain.Chunk{{ID: "a", Text: "east"}, {ID: "b", Text: "north"}}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{{1, 0}, {0, 1}}))
	require.Error(t, s.Upsert(ctx, chunks[:1], [][]float32{{1, 0, 0}}))
	require.Error(t, s.Upsert(ctx, chunks, [][]float32{{1, 0}}))

	res, err := s.Search(ctx, []float32{0.9, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "east", res[0].Chunk.Text)

	// same ID replaces in place
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ID: "a", Text: "east2"}}, [][]float32{{1, 0}}))
	all, err := s.Chunks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "east2", all[0].Text)

	require.NoError(t, s.Clear(ctx))
	res, err = s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestStorage_Meta(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_, ok, err := s.GetMeta(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.SetMeta(ctx, "k", "v"))
	v, ok, err := s.GetMeta(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
