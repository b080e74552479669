// Package app assembles a bot and its collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qabot/internal/bot"
	"qabot/internal/chunker"
	"qabot/internal/config"
	"qabot/internal/domain"
	"qabot/internal/embedding/openai"
	"qabot/internal/embedding/tfidf"
	"qabot/internal/generation"
	"qabot/internal/indexer"
	"qabot/internal/loader"
	"qabot/internal/summarizer"
	"qabot/internal/telemetry"
	"qabot/internal/vectorstore/memory"
	"qabot/internal/vectorstore/postgres"
	"qabot/internal/vectorstore/qdrant"
	"qabot/internal/vectorstore/sqlite"
)

// Options carries collaborators that override the configured ones.
type Options struct {
	Logger    *slog.Logger
	Generator domain.Generator
	Embedder  domain.Embedder
}

// App is an assembled bot ready to answer questions.
type App struct {
	Bot     domain.Bot
	Summary string
	Stats   indexer.Stats
	// Model names the generation model when the generator reports one.
	Model string

	closers []func(context.Context) error
}

// Close releases stores and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// initTelemetry is replaced in tests.
var initTelemetry = telemetry.Init

// Build validates cfg and assembles the configured bot. For the retrieval
// bot this loads every configured source and builds the index. Whatever was
// opened is closed again when Build fails.
func Build(ctx context.Context, cfg *config.AppConfig, opts Options) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{}
	defer func() {
		if err != nil {
			if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
				logger.Warn("releasing resources after failed startup", "error", cerr)
			}
		}
	}()

	inst, err := instruments(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	switch cfg.Bot {
	case "fuzzy":
		pairs, err := bot.LoadQAFile(cfg.Fuzzy.QAFile)
		if err != nil {
			return nil, err
		}
		a.Bot = bot.NewFuzzyMatchBot(pairs, bot.WithCutoff(cfg.Fuzzy.Cutoff), bot.WithFuzzyLogger(logger))
		a.Summary = fmt.Sprintf("%d question/answer pairs from %s", len(pairs), cfg.Fuzzy.QAFile)
		logger.Info("fuzzy bot ready", "pairs", len(pairs), "cutoff", cfg.Fuzzy.Cutoff)
		return a, nil
	case "rag":
		if err := a.buildRetrievalBot(ctx, cfg, opts, inst, logger); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown bot: %s", cfg.Bot)
	}
}

func instruments(ctx context.Context, cfg *config.AppConfig, a *App) (*telemetry.Instruments, error) {
	if !cfg.Telemetry.Enabled {
		return telemetry.Default()
	}
	inst, shutdown, err := initTelemetry(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}
	a.closers = append(a.closers, shutdown)
	return inst, nil
}

func (a *App) buildRetrievalBot(ctx context.Context, cfg *config.AppConfig, opts Options, inst *telemetry.Instruments, logger *slog.Logger) error {
	docs, err := LoadDocuments(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return err
	}
	emb := opts.Embedder
	if emb == nil {
		if emb, err = newEmbedder(cfg.Embedder, logger); err != nil {
			return err
		}
	}
	st, err := a.newStore(ctx, cfg.VectorStore, logger)
	if err != nil {
		return err
	}
	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	idx := indexer.New(ch, emb, st, sum, indexer.Options{
		Policy:              indexer.Policy(cfg.Index.Policy),
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		Logger:              logger,
		Instruments:         inst,
	})
	stats, err := idx.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	a.Stats = stats
	a.Summary = stats.Summary

	gen := opts.Generator
	if gen == nil {
		g := cfg.Generation
		if gen, err = generation.NewOpenAIGenerator(generation.Config{
			BaseURL:     g.BaseURL,
			APIKeyEnv:   g.APIKeyEnv,
			Model:       g.Model,
			Mode:        generation.Mode(g.Mode),
			MaxTokens:   g.MaxTokens,
			Temperature: g.Temperature,
			Timeout:     time.Duration(g.TimeoutSecs) * time.Second,
		}); err != nil {
			return fmt.Errorf("generator init: %w", err)
		}
	}
	if m, ok := gen.(interface{ Model() string }); ok {
		a.Model = m.Model()
	}
	prompts, err := generation.NewPromptBuilder(generation.PromptOptions{
		Family:          generation.FamilyForModel(cfg.Generation.Model),
		Template:        cfg.Generation.Template,
		MaxContextChars: cfg.Generation.MaxContextChars,
		MaxPromptTokens: cfg.Generation.MaxPromptTokens,
	})
	if err != nil {
		return err
	}
	b, err := bot.NewRetrievalQABot(idx, gen, prompts,
		bot.WithK(cfg.Generation.K),
		bot.WithLogger(logger),
		bot.WithInstruments(inst),
	)
	if err != nil {
		return err
	}
	a.Bot = b
	logger.Info("retrieval bot ready", "documents", stats.Documents, "chunks", stats.Chunks, "reused", stats.Reused, "model", a.Model)
	return nil
}

// LoadDocuments reads the data directory, the configured web pages and the
// wiki space, in that order.
func LoadDocuments(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) ([]domain.Document, error) {
	var docs []domain.Document
	if cfg.DataDir != "" {
		d, err := loader.New(loader.WithLogger(logger)).LoadDirectory(ctx, cfg.DataDir)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d...)
	}
	if len(cfg.Web.URLs) > 0 {
		web := loader.NewWebLoader(time.Duration(cfg.Web.TimeoutSecs)*time.Second, logger)
		for _, u := range cfg.Web.URLs {
			d, err := web.Load(ctx, u)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
	}
	if cfg.Confluence.Enabled() {
		cl, err := loader.NewConfluenceLoader(loader.ConfluenceConfig{
			BaseURL:  cfg.Confluence.BaseURL,
			Username: cfg.Confluence.Username,
			APIToken: cfg.Confluence.APIToken,
			SpaceKey: cfg.Confluence.SpaceKey,
			PageSize: cfg.Confluence.PageSize,
			Timeout:  time.Duration(cfg.Confluence.TimeoutSecs) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		d, err := cl.Load(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d...)
	}
	logger.Info("documents loaded", "count", len(docs))
	return docs, nil
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "character":
		return chunker.NewCharacterChunker(cfg.Size, cfg.Overlap)
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig, logger *slog.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func (a *App) newStore(ctx context.Context, cfg config.VectorStoreConfig, logger *slog.Logger) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "sqlite":
		st, err := sqlite.Open(cfg.SQLite.Path, sqlite.WithLogger(logger))
		if err != nil {
			logger.Error("opening sqlite store failed", "path", cfg.SQLite.Path, "error", err)
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
		return st, nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Error("connecting to postgres failed", "error", err)
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		st := postgres.New(pool, postgres.WithLogger(logger))
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
