// Package loader turns files, web pages and wiki spaces into documents.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"qabot/internal/domain"
)

// Extractor converts the raw bytes of one file into documents.
type Extractor interface {
	Extract(source string, content []byte) ([]domain.Document, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(source string, content []byte) ([]domain.Document, error)

func (f ExtractorFunc) Extract(source string, content []byte) ([]domain.Document, error) {
	return f(source, content)
}

// Loader reads every supported file of a directory.
type Loader struct {
	extractors map[string]Extractor
	logger     *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used to report skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithExtractor registers e for files with extension ext (for example ".rst").
func WithExtractor(ext string, e Extractor) Option {
	return func(ld *Loader) { ld.extractors[strings.ToLower(ext)] = e }
}

// New returns a Loader with the built-in extractors registered.
func New(opts ...Option) *Loader {
	ld := &Loader{
		extractors: map[string]Extractor{
			".txt":      ExtractorFunc(extractText),
			".pdf":      ExtractorFunc(extractPDF),
			".csv":      ExtractorFunc(extractCSV),
			".html":     ExtractorFunc(extractHTML),
			".htm":      ExtractorFunc(extractHTML),
			".md":       ExtractorFunc(extractMarkdown),
			".markdown": ExtractorFunc(extractMarkdown),
			".json":     ExtractorFunc(extractJSON),
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// LoadDirectory extracts documents from every regular file in dir, in name
// order. Unsupported files are logged and skipped; a failure on a supported
// file aborts the load.
func (ld *Loader) LoadDirectory(ctx context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var docs []domain.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		extractor, ok := ld.extractors[ext]
		if !ok {
			ld.logger.Warn("unsupported file format", "file", name)
			continue
		}
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		extracted, err := extractor.Extract(name, content)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		ld.logger.Debug("loaded file", "file", name, "documents", len(extracted))
		docs = append(docs, extracted...)
	}
	return docs, nil
}

// newDocument builds the n-th document extracted from source.
func newDocument(source string, n int, content string, meta map[string]string) domain.Document {
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta["source"] = source
	return domain.Document{
		ID:       source + "#" + strconv.Itoa(n),
		Source:   source,
		Content:  content,
		Metadata: meta,
	}
}

func extractText(source string, content []byte) ([]domain.Document, error) {
	return []domain.Document{newDocument(source, 0, string(content), nil)}, nil
}
