package loader

import (
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"qabot/internal/domain"
)

// extractJSON maps a JSON file onto documents: one per key of a top-level
// object ("key: value", file order), one per element of a top-level array,
// or a single document for a scalar.
func extractJSON(source string, content []byte) ([]domain.Document, error) {
	if !gjson.ValidBytes(content) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(content)
	var docs []domain.Document
	add := func(text string) {
		docs = append(docs, newDocument(source, len(docs), text, nil))
	}
	switch {
	case root.IsObject():
		root.ForEach(func(key, value gjson.Result) bool {
			add(key.String() + ": " + jsonValueText(value))
			return true
		})
	case root.IsArray():
		root.ForEach(func(_, value gjson.Result) bool {
			add(jsonValueText(value))
			return true
		})
	default:
		add(jsonValueText(root))
	}
	return docs, nil
}

// jsonValueText renders strings and numbers as plain text and containers as
// compact JSON.
func jsonValueText(v gjson.Result) string {
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return v.Raw
	default:
		return string(pretty.Ugly([]byte(v.Raw)))
	}
}
