package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterChunker_BoundsAndOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 257) + "tail"
	c, err := NewCharacterChunker(1000, 200)
	require.NoError(t, err)

	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 1000)
		if i < len(chunks)-1 {
			assert.Equal(t, 1000, utf8.RuneCountInString(ch.Text), "only the last chunk may be short")
		}
		if i > 0 {
			prev := []rune(chunks[i-1].Text)
			cur := []rune(ch.Text)
			assert.Equal(t, string(prev[len(prev)-200:]), string(cur[:200]), "chunk %d overlap", i)
			assert.Equal(t, chunks[i-1].Start+800, ch.Start)
		}
	}
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(last.Text, "tail"))
}

func TestCharacterChunker_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80)
	c, err := NewCharacterChunker(300, 50)
	require.NoError(t, err)

	a, err := c.Chunk(text)
	require.NoError(t, err)
	b, err := c.Chunk(text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCharacterChunker_Runes(t *testing.T) {
	c, err := NewCharacterChunker(4, 1)
	require.NoError(t, err)

	chunks, err := c.Chunk("héllo wörld")
	require.NoError(t, err)
	var got []string
	for _, ch := range chunks {
		got = append(got, ch.Text)
	}
	assert.Equal(t, []string{"héll", "lo w", "wörl", "ld"}, got)
}

func TestCharacterChunker_ShortAndEmpty(t *testing.T) {
	c, err := NewCharacterChunker(100, 10)
	require.NoError(t, err)

	chunks, err := c.Chunk("short text")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)

	chunks, err = c.Chunk("  \n\n ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNewCharacterChunker_InvalidParams(t *testing.T) {
	_, err := NewCharacterChunker(0, 0)
	assert.Error(t, err)
	_, err = NewCharacterChunker(100, 100)
	assert.Error(t, err)
	_, err = NewCharacterChunker(100, -1)
	assert.Error(t, err)
}

func TestChunkID_Stable(t *testing.T) {
	assert.Equal(t, ChunkID(3, "x"), ChunkID(3, "x"))
	assert.NotEqual(t, ChunkID(3, "x"), ChunkID(4, "x"))
	assert.NotEqual(t, ChunkID(3, "x"), ChunkID(3, "y"))
}

func TestSentenceChunker(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	chunks, err := c.Chunk("One. Two. Three. Four.")
	require.NoError(t, err)

	var got []string
	for _, ch := range chunks {
		got = append(got, ch.Text)
	}
	assert.Equal(t, []string{"One. Two.", "Two. Three.", "Three. Four."}, got)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 5, chunks[1].Start)
}

func TestSentenceChunker_NoTerminator(t *testing.T) {
	c := NewSentenceChunker(3, 0)
	chunks, err := c.Chunk("  just words  ")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just words", chunks[0].Text)
	assert.Equal(t, 2, chunks[0].Start)
}
