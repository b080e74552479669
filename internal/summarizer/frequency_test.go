package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencySummarizer_KeepsOrderAndLimit(t *testing.T) {
	text := "Gophers dig tunnels. Gophers eat roots and gophers dig more tunnels. The weather was mild. Tunnels help gophers hide."
	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.NotContains(t, out, "weather")
	assert.Equal(t, 2, countSentences(out))
}

func TestFrequencySummarizer_NoPunctuation(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("  just a fragment  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "just a fragment", out)
}

func TestFrequencySummarizer_NoPunctuationCapsLines(t *testing.T) {
	text := "\n  first   line \n\nsecond line\nthird line\nfourth line\n"
	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "first line second line", out)
}

func TestFrequencySummarizer_FewerSentencesThanLimit(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("One idea. Two ideas.", 0)
	require.NoError(t, err)
	assert.Equal(t, "One idea. Two ideas.", out)
}

func countSentences(s string) int {
	n := 0
	for _, r := range s {
		if r == '.' {
			n++
		}
	}
	return n
}
