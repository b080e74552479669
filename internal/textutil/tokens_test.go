package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"don't", "panic", "über", "go"}, Words("Don't PANIC, über-Go!"))
	assert.Empty(t, Words("123 456 ..."))
}

func TestContentWordsDropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"cat", "sat", "mat"}, ContentWords("The cat sat on the mat"))
}

func TestWordSet(t *testing.T) {
	set := WordSet("go go gopher")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "gopher")
}

func TestSentences(t *testing.T) {
	got := Sentences("One. Two! Three? tail")
	assert.Equal(t, []string{"One.", " Two!", " Three?"}, got)
}
