package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"qabot/internal/domain"
)

// extractCSV yields one document per data row, one "column: value" line per
// cell. The first row holds the column names.
func extractCSV(source string, content []byte) ([]domain.Document, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	var docs []domain.Document
	for row := 0; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		lines := make([]string, 0, len(headers))
		for i, h := range headers {
			var val string
			if i < len(record) {
				val = strings.TrimSpace(record[i])
			}
			lines = append(lines, h+": "+val)
		}
		docs = append(docs, newDocument(source, len(docs), strings.Join(lines, "\n"), map[string]string{"row": strconv.Itoa(row)}))
	}
	return docs, nil
}
