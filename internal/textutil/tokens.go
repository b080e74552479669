// Package textutil holds the word tokenizer and stopword list shared by the
// TF-IDF embedder, the summarizer and the lexical fallback search.
package textutil

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Words returns the lower-cased letter runs of s.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// IsStopword reports whether w (lower-case) is a stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// ContentWords returns Words(s) without stopwords.
func ContentWords(s string) []string {
	raw := Words(s)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// WordSet returns the distinct words of s.
func WordSet(s string) map[string]struct{} {
	tokens := Words(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Sentences splits text on terminal punctuation. Trailing text without a
// terminator is dropped, so callers fall back to the whole text when nothing
// matches.
func Sentences(text string) []string {
	return sentenceRe.FindAllString(text, -1)
}
