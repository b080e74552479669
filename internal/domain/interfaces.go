package domain

import "context"

// Document is a unit of loaded source text: a file, a page of a file, a row,
// a web page or a wiki page.
type Document struct {
	ID       string
	Source   string
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded slice of the concatenated corpus used as the unit of
// retrieval. Start is the rune offset of Text in the corpus.
type Chunk struct {
	ID    string
	Index int
	Start int
	Text  string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits corpus text into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(text string) ([]Chunk, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// MetadataStore is implemented by stores that can keep small key/value
// records next to the vectors and list what they hold. The indexer uses it
// to skip re-embedding an unchanged corpus.
type MetadataStore interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	Chunks(ctx context.Context) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// Bot answers a user question with reply text. Implementations never fail:
// errors are turned into a user-facing message.
type Bot interface {
	GetResponse(ctx context.Context, query string) string
}
