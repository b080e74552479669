// Package postgres stores chunks in PostgreSQL with pgvector and ranks them
// by cosine distance inside the database.
//
// The caller owns the *pgxpool.Pool passed to New.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qabot/internal/domain"
	"qabot/internal/vectorstore"
)

const dimensionKey = "dimension"

var (
	_ domain.VectorStore   = (*Storage)(nil)
	_ domain.MetadataStore = (*Storage)(nil)
)

// Storage implements domain.VectorStore on a pgvector-enabled database.
type Storage struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	dimension int
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used by the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.logger = l }
}

// New creates a Storage using an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) *Storage {
	s := &Storage{pool: pool, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Connect opens a pool for dsn. The returned pool must be closed by the caller.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the extension and tables. Safe to call multiple times.
func (s *Storage) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS qabot_chunks (
			id TEXT PRIMARY KEY,
			chunk_index INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding vector NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS qabot_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// Init migrates the schema and records the dimension; a dimension change
// drops the stored chunks.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	prev, ok, err := s.GetMeta(ctx, dimensionKey)
	if err != nil {
		return err
	}
	if ok && prev != strconv.Itoa(dimension) {
		s.logger.Info("postgres: dimension changed, dropping chunks", "old", prev, "new", dimension)
		if err := s.Clear(ctx); err != nil {
			return err
		}
	}
	s.dimension = dimension
	return s.SetMeta(ctx, dimensionKey, strconv.Itoa(dimension))
}

// Upsert writes all chunks in a single transaction.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, ch := range chunks {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return vectorstore.ErrDimensionMismatch
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO qabot_chunks (id, chunk_index, start_offset, text, embedding)
			 VALUES ($1, $2, $3, $4, $5::vector)
			 ON CONFLICT (id) DO UPDATE SET
			   chunk_index = EXCLUDED.chunk_index,
			   start_offset = EXCLUDED.start_offset,
			   text = EXCLUDED.text,
			   embedding = EXCLUDED.embedding`,
			ch.ID, ch.Index, ch.Start, ch.Text, serializeEmbedding(vectors[i]))
		if err != nil {
			return fmt.Errorf("postgres: upsert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// Search ranks chunks by pgvector cosine distance.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, chunk_index, start_offset, text,
		        1 - (embedding <=> $1::vector) AS score
		 FROM qabot_chunks
		 ORDER BY embedding <=> $1::vector, chunk_index
		 LIMIT $2`,
		serializeEmbedding(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.Index, &r.Chunk.Start, &r.Chunk.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM qabot_chunks`); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Chunks returns every stored chunk ordered by index.
func (s *Storage) Chunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chunk_index, start_offset, text FROM qabot_chunks ORDER BY chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.Index, &c.Start, &c.Text); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM qabot_meta WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get meta %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Storage) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO qabot_meta (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres: set meta %s: %w", key, err)
	}
	return nil
}

// serializeEmbedding converts []float32 to pgvector's text input format,
// e.g. "[0.1,0.2,0.3]".
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
