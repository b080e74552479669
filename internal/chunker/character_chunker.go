package chunker

import (
	"fmt"
	"strings"

	"qabot/internal/domain"
)

// CharacterChunker cuts text into fixed-size rune windows. Consecutive
// windows share exactly overlap runes; only the last window may be shorter.
type CharacterChunker struct {
	size    int
	overlap int
}

// NewCharacterChunker validates the window parameters.
func NewCharacterChunker(size, overlap int) (*CharacterChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &CharacterChunker{size: size, overlap: overlap}, nil
}

func (c *CharacterChunker) Chunk(text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	runes := []rune(text)
	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, newChunk(len(chunks), start, string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
