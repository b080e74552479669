package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"qabot/internal/domain"
)

// extractPDF yields one document per page with text.
func extractPDF(source string, content []byte) ([]domain.Document, error) {
	if len(content) == 0 {
		return nil, errors.New("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	var docs []domain.Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, newDocument(source, len(docs), text, map[string]string{"page": strconv.Itoa(i)}))
	}
	return docs, nil
}
