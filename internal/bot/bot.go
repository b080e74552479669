// Package bot holds the two question-answering bots: a fuzzy matcher over a
// fixed FAQ and a retrieval-augmented generator.
package bot

import "qabot/internal/domain"

var (
	_ domain.Bot = (*FuzzyMatchBot)(nil)
	_ domain.Bot = (*RetrievalQABot)(nil)
)
