package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"qabot/internal/domain"
)

// maxPageBytes caps how much of a response body is read.
const maxPageBytes = 5 << 20

// FetchError reports a failed page download: a transport error or a non-2xx
// status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WebLoader downloads single pages. Failures are not retried.
type WebLoader struct {
	client   *http.Client
	logger   *slog.Logger
	maxBytes int64
}

// NewWebLoader returns a WebLoader with the given request timeout
// (15s when zero).
func NewWebLoader(timeout time.Duration, logger *slog.Logger) *WebLoader {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WebLoader{client: &http.Client{Timeout: timeout}, logger: logger, maxBytes: maxPageBytes}
}

// Load fetches rawURL and returns its visible text as one document, headed
// by the page title. Bodies over the size cap are cut with a warning.
func (w *WebLoader) Load(ctx context.Context, rawURL string) (domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Document{}, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; qabot/1.0)")

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.Document{}, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Document{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes+1))
	if err != nil {
		return domain.Document{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > w.maxBytes {
		body = body[:w.maxBytes]
		w.logger.Warn("page truncated", "url", rawURL, "limit_bytes", w.maxBytes)
	}

	text, err := VisibleText(bytes.NewReader(body))
	if err != nil {
		return domain.Document{}, err
	}
	meta := map[string]string{"url": rawURL}
	if title := w.title(rawURL, body); title != "" {
		meta["title"] = title
		if !strings.HasPrefix(text, title) {
			text = title + "\n" + text
		}
	}
	w.logger.Debug("fetched page", "url", rawURL, "bytes", len(body))
	return newDocument(rawURL, 0, text, meta), nil
}

// title prefers the readability article title and falls back to <title>.
func (w *WebLoader) title(rawURL string, body []byte) string {
	parsed, _ := url.Parse(rawURL)
	if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil && article.Title != "" {
		return article.Title
	}
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return pageTitle(root)
}
