// Package indexer builds the vector index from loaded documents and serves
// similarity search over it.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"qabot/internal/domain"
	"qabot/internal/telemetry"
	"qabot/internal/textutil"
	"qabot/internal/vectorstore"
)

// Policy decides what happens to an existing index on start.
type Policy string

const (
	// PolicyRebuild clears and rewrites the store on every build.
	PolicyRebuild Policy = "rebuild"
	// PolicyFingerprint reuses stored embeddings when the corpus fingerprint
	// recorded in the store matches.
	PolicyFingerprint Policy = "fingerprint"
)

const fingerprintKey = "fingerprint"

// ErrNoTexts is returned when the documents produce no chunks.
var ErrNoTexts = errors.New("no texts to index")

// Stats describes one build.
type Stats struct {
	Documents   int
	Chunks      int
	Reused      bool
	Fingerprint string
	Summary     string
}

// Options configures a Service. Zero values pick the defaults.
type Options struct {
	Policy              Policy
	SummaryMaxSentences int
	Logger              *slog.Logger
	Instruments         *telemetry.Instruments
}

// Service chunks, embeds and stores documents.
type Service struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	summarizer domain.Summarizer
	opts       Options

	mu     sync.RWMutex
	chunks []domain.Chunk
}

var _ domain.Retriever = (*Service)(nil)

// New returns a Service. summarizer may be nil.
func New(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = PolicyRebuild
	}
	if opts.SummaryMaxSentences <= 0 {
		opts.SummaryMaxSentences = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{chunker: chunker, embedder: embedder, store: store, summarizer: summarizer, opts: opts}
}

// Build indexes docs. The contents are joined with a blank line, chunked,
// embedded and written to the store according to the policy.
func (s *Service) Build(ctx context.Context, docs []domain.Document) (Stats, error) {
	stats := Stats{Documents: len(docs)}
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	corpus := strings.Join(contents, "\n\n")
	chunks, err := s.chunker.Chunk(corpus)
	if err != nil {
		return stats, fmt.Errorf("chunk documents: %w", err)
	}
	if len(chunks) == 0 {
		return stats, ErrNoTexts
	}
	stats.Chunks = len(chunks)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	stats.Fingerprint = fingerprint(s.embedder.Name(), texts)

	if err := s.embedder.Prepare(texts); err != nil {
		s.opts.Logger.Error("embedder preparation failed", "embedder", s.embedder.Name(), "error", err)
		return stats, fmt.Errorf("prepare embedder: %w", err)
	}

	meta, hasMeta := s.store.(domain.MetadataStore)
	if s.opts.Policy == PolicyFingerprint && hasMeta {
		prev, ok, err := meta.GetMeta(ctx, fingerprintKey)
		if err != nil {
			s.opts.Logger.Error("reading index fingerprint failed", "error", err)
			return stats, fmt.Errorf("read fingerprint: %w", err)
		}
		if ok && prev == stats.Fingerprint {
			stored, err := meta.Chunks(ctx)
			if err != nil {
				return stats, fmt.Errorf("read stored chunks: %w", err)
			}
			if sameChunks(stored, chunks) {
				s.opts.Logger.Info("index up to date, reusing stored embeddings", "chunks", len(stored))
				stats.Reused = true
				s.setChunks(stored)
				stats.Summary, err = s.summarize(corpus)
				return stats, err
			}
			s.opts.Logger.Warn("stored chunks do not match fingerprint, rebuilding", "stored", len(stored), "want", len(chunks))
		}
	}

	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		vec, err := s.embedder.Embed(ctx, ch.Text)
		if err != nil {
			s.opts.Logger.Error("embedding failed", "chunk", ch.Index, "error", err)
			return stats, fmt.Errorf("embed chunk %d: %w", ch.Index, err)
		}
		vectors[i] = vec
	}
	if err := s.store.Init(ctx, len(vectors[0])); err != nil {
		s.opts.Logger.Error("vector store init failed", "error", err)
		return stats, fmt.Errorf("init vector store: %w", err)
	}
	// The fingerprint is withdrawn before the contents change and recorded
	// again only after a complete write.
	if hasMeta {
		if err := meta.SetMeta(ctx, fingerprintKey, ""); err != nil {
			s.opts.Logger.Error("withdrawing index fingerprint failed", "error", err)
			return stats, fmt.Errorf("withdraw fingerprint: %w", err)
		}
	}
	if err := s.store.Clear(ctx); err != nil {
		s.opts.Logger.Error("vector store clear failed", "error", err)
		return stats, fmt.Errorf("clear vector store: %w", err)
	}
	if err := s.store.Upsert(ctx, chunks, vectors); err != nil {
		s.opts.Logger.Error("vector store upsert failed", "error", err)
		return stats, fmt.Errorf("upsert chunks: %w", err)
	}
	if hasMeta {
		if err := meta.SetMeta(ctx, fingerprintKey, stats.Fingerprint); err != nil {
			return stats, fmt.Errorf("record fingerprint: %w", err)
		}
	}
	if s.opts.Instruments != nil {
		s.opts.Instruments.IndexedChunks.Add(ctx, int64(len(chunks)))
	}
	s.setChunks(chunks)
	s.opts.Logger.Info("index built", "documents", len(docs), "chunks", len(chunks), "embedder", s.embedder.Name())

	stats.Summary, err = s.summarize(corpus)
	return stats, err
}

func (s *Service) summarize(corpus string) (string, error) {
	if s.summarizer == nil {
		return "", nil
	}
	summary, err := s.summarizer.Summarize(corpus, s.opts.SummaryMaxSentences)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}

func (s *Service) setChunks(chunks []domain.Chunk) {
	s.mu.Lock()
	s.chunks = chunks
	s.mu.Unlock()
}

// indexed returns the chunks of the last build.
func (s *Service) indexed() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunks...)
}

// Search returns the topK chunks nearest query. When the query embeds to
// the zero vector or nothing scores above zero, chunks are ranked by token
// overlap instead.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if vectorstore.IsZero(vec) {
		return s.lexicalSearch(query, topK), nil
	}
	res, err := s.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	for _, r := range res {
		if r.Score > 1e-9 {
			return res, nil
		}
	}
	return s.lexicalSearch(query, topK), nil
}

func (s *Service) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := textutil.WordSet(query)
	s.mu.RLock()
	results := make([]domain.SearchResult, len(s.chunks))
	for i, ch := range s.chunks {
		results[i] = domain.SearchResult{Chunk: ch, Score: overlapOchiai(qset, ch.Text)}
	}
	s.mu.RUnlock()
	return vectorstore.TopK(results, topK)
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over distinct words.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	tset := textutil.WordSet(text)
	if len(qset) == 0 || len(tset) == 0 {
		return 0
	}
	inter := 0
	for t := range tset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(tset)))
}

// sameChunks reports whether stored holds exactly want, by ID and text.
func sameChunks(stored, want []domain.Chunk) bool {
	if len(stored) != len(want) {
		return false
	}
	byID := make(map[string]string, len(stored))
	for _, c := range stored {
		byID[c.ID] = c.Text
	}
	for _, c := range want {
		if text, ok := byID[c.ID]; !ok || text != c.Text {
			return false
		}
	}
	return true
}

func fingerprint(embedder string, texts []string) string {
	h := sha256.New()
	h.Write([]byte(embedder))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(len(texts))))
	for _, t := range texts {
		h.Write([]byte{0})
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
