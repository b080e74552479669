package memory

import (
	"context"
	"errors"
	"sync"

	"qabot/internal/domain"
	"qabot/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine
// similarity. It also keeps string metadata so the fingerprint policy works
// within one process.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	chunks    []domain.Chunk
	byID      map[string]int
	meta      map[string]string
}

func NewStorage() *Storage {
	return &Storage{byID: make(map[string]int), meta: make(map[string]string)}
}

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != dimension {
		s.vectors = nil
		s.chunks = nil
		s.byID = make(map[string]int)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return vectorstore.ErrDimensionMismatch
		}
	}
	for i, ch := range chunks {
		if j, ok := s.byID[ch.ID]; ok {
			s.chunks[j] = ch
			s.vectors[j] = vectors[i]
			continue
		}
		s.byID[ch.ID] = len(s.chunks)
		s.chunks = append(s.chunks, ch)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.SearchResult, 0, len(s.vectors))
	for i := range s.vectors {
		score, err := vectorstore.Cosine(s.vectors[i], vector)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SearchResult{Chunk: s.chunks[i], Score: score})
	}
	return vectorstore.TopK(results, topK), nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	s.byID = make(map[string]int)
	return nil
}

// Chunks returns the stored chunks in insertion order.
func (s *Storage) Chunks(context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

func (s *Storage) GetMeta(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[key]
	return v, ok, nil
}

func (s *Storage) SetMeta(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}
