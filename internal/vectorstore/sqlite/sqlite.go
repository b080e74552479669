// Package sqlite persists chunks and their embeddings in a single SQLite
// file so an index survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"qabot/internal/domain"
	"qabot/internal/vectorstore"
)

const dimensionKey = "dimension"

var (
	_ domain.VectorStore   = (*Storage)(nil)
	_ domain.MetadataStore = (*Storage)(nil)
)

// Storage is a brute-force cosine store backed by SQLite.
type Storage struct {
	db        *sqlx.DB
	logger    *slog.Logger
	dimension int
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used by the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.logger = l }
}

type chunkRow struct {
	ID        string `db:"id"`
	Index     int    `db:"chunk_index"`
	Start     int    `db:"start_offset"`
	Text      string `db:"text"`
	Embedding []byte `db:"embedding"`
}

// Open opens (or creates) the database at path. All access goes through one
// connection so concurrent writers never see SQLITE_BUSY.
func Open(path string, opts ...Option) (*Storage, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &Storage{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("sqlite: store opened", "path", path)
	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			chunk_index INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_index ON chunks(chunk_index)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Init records the vector dimension. Existing chunks of another dimension
// are dropped.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	prev, ok, err := s.GetMeta(ctx, dimensionKey)
	if err != nil {
		return err
	}
	if ok && prev != strconv.Itoa(dimension) {
		s.logger.Info("sqlite: dimension changed, dropping chunks", "old", prev, "new", dimension)
		if err := s.Clear(ctx); err != nil {
			return err
		}
	}
	s.dimension = dimension
	return s.SetMeta(ctx, dimensionKey, strconv.Itoa(dimension))
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	for i, ch := range chunks {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return vectorstore.ErrDimensionMismatch
		}
		row := chunkRow{
			ID:        ch.ID,
			Index:     ch.Index,
			Start:     ch.Start,
			Text:      ch.Text,
			Embedding: vectorstore.EncodeEmbedding(vectors[i]),
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO chunks (id, chunk_index, start_offset, text, embedding)
			VALUES (:id, :chunk_index, :start_offset, :text, :embedding)
			ON CONFLICT(id) DO UPDATE SET
				chunk_index = excluded.chunk_index,
				start_offset = excluded.start_offset,
				text = excluded.text,
				embedding = excluded.embedding`, row)
		if err != nil {
			return fmt.Errorf("sqlite: upsert chunk %s: %w", ch.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, chunk_index, start_offset, text, embedding FROM chunks ORDER BY chunk_index`); err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(rows))
	for _, r := range rows {
		vec, err := vectorstore.DecodeEmbedding(r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("sqlite: chunk %s: %w", r.ID, err)
		}
		score, err := vectorstore.Cosine(vec, vector)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SearchResult{Chunk: r.chunk(), Score: score})
	}
	return vectorstore.TopK(results, topK), nil
}

func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}
	return nil
}

// Chunks returns every stored chunk ordered by index.
func (s *Storage) Chunks(ctx context.Context) ([]domain.Chunk, error) {
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, chunk_index, start_offset, text, embedding FROM chunks ORDER BY chunk_index`); err != nil {
		return nil, fmt.Errorf("sqlite: list chunks: %w", err)
	}
	out := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		out[i] = r.chunk()
	}
	return out, nil
}

func (s *Storage) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: get meta %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Storage) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set meta %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Storage) Close() error { return s.db.Close() }

func (r chunkRow) chunk() domain.Chunk {
	return domain.Chunk{ID: r.ID, Index: r.Index, Start: r.Start, Text: r.Text}
}
