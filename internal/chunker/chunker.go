package chunker

import (
	"strconv"

	"github.com/google/uuid"

	"qabot/internal/domain"
)

// chunkNamespace scopes chunk IDs so identical text at the same position
// always maps to the same ID across runs and stores.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("qabot/chunk"))

func newChunk(index, start int, text string) domain.Chunk {
	return domain.Chunk{
		ID:    ChunkID(index, text),
		Index: index,
		Start: start,
		Text:  text,
	}
}

// ChunkID derives the deterministic ID of the chunk at index with text.
func ChunkID(index int, text string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(strconv.Itoa(index)+"\x00"+text)).String()
}
