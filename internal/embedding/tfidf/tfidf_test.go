package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_RequiresPrepare(t *testing.T) {
	e := NewEmbedder()
	_, err := e.Embed(context.Background(), "anything")
	assert.Error(t, err)
	assert.Error(t, e.Prepare(nil))
	assert.Error(t, e.Prepare([]string{"the and of"}))
}

func TestEmbedder_NormalisedAndStable(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{
		"Gophers dig tunnels in the garden.",
		"Rust is not a gopher.",
		"Go services run in containers.",
	}))
	assert.Equal(t, "tfidf", e.Name())
	assert.Positive(t, e.Dimension())

	v1, err := e.Embed(context.Background(), "gophers dig tunnels")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "gophers dig tunnels")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, e.Dimension())

	var norm float64
	for _, v := range v1 {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestEmbedder_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"alpha beta gamma"}))

	v, err := e.Embed(context.Background(), "zeta")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}
