package chunker

import (
	"strings"

	"qabot/internal/domain"
	"qabot/internal/textutil"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

func (c *SentenceChunker) Chunk(text string) ([]domain.Chunk, error) {
	type span struct {
		text  string
		start int
	}
	var sentences []span
	offset := 0
	for _, s := range textutil.Sentences(text) {
		idx := strings.Index(text[offset:], s)
		pos := offset + idx
		offset = pos + len(s)
		lead := len(s) - len(strings.TrimLeft(s, " \t\r\n"))
		sentences = append(sentences, span{
			text:  strings.TrimSpace(s),
			start: len([]rune(text[:pos+lead])),
		})
	}
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, nil
		}
		lead := strings.Index(text, trimmed)
		sentences = []span{{text: trimmed, start: len([]rune(text[:lead]))}}
	}
	var chunks []domain.Chunk
	for i := 0; i < len(sentences); {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		parts := make([]string, 0, end-i)
		for _, s := range sentences[i:end] {
			parts = append(parts, s.text)
		}
		chunks = append(chunks, newChunk(len(chunks), sentences[i].start, strings.Join(parts, " ")))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks, nil
}
