package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"qabot/internal/domain"
)

// ConfluenceConfig identifies one wiki space.
type ConfluenceConfig struct {
	BaseURL  string
	Username string
	APIToken string
	SpaceKey string
	PageSize int
	Timeout  time.Duration
}

// ConfluenceLoader reads every page of a Confluence space through the REST
// content API.
type ConfluenceLoader struct {
	cfg    ConfluenceConfig
	client *http.Client
	logger *slog.Logger
}

func NewConfluenceLoader(cfg ConfluenceConfig, logger *slog.Logger) (*ConfluenceLoader, error) {
	if cfg.BaseURL == "" || cfg.SpaceKey == "" {
		return nil, errors.New("confluence base URL and space key are required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConfluenceLoader{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, logger: logger}, nil
}

// Load returns one document per page: the title followed by the visible
// text of the storage-format body.
func (c *ConfluenceLoader) Load(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	for start := 0; ; {
		body, err := c.fetch(ctx, start)
		if err != nil {
			return nil, err
		}
		results := gjson.GetBytes(body, "results").Array()
		for _, page := range results {
			title := page.Get("title").String()
			text, err := VisibleText(strings.NewReader(page.Get("body.storage.value").String()))
			if err != nil {
				return nil, fmt.Errorf("confluence page %s: %w", page.Get("id").String(), err)
			}
			content := strings.TrimSpace(title + "\n" + text)
			source := c.cfg.BaseURL + page.Get("_links.webui").String()
			docs = append(docs, newDocument(source, 0, content, map[string]string{
				"title":   title,
				"page_id": page.Get("id").String(),
				"space":   c.cfg.SpaceKey,
			}))
		}
		c.logger.Debug("confluence page batch", "start", start, "count", len(results))
		if len(results) == 0 || !gjson.GetBytes(body, "_links.next").Exists() {
			break
		}
		start += len(results)
	}
	return docs, nil
}

func (c *ConfluenceLoader) fetch(ctx context.Context, start int) ([]byte, error) {
	q := url.Values{}
	q.Set("spaceKey", c.cfg.SpaceKey)
	q.Set("type", "page")
	q.Set("expand", "body.storage")
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	endpoint := c.cfg.BaseURL + "/rest/api/content?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Username != "" || c.cfg.APIToken != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}
