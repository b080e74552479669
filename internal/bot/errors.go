package bot

import (
	"errors"
	"fmt"
)

// User-facing replies. They never change with the underlying failure.
const (
	ApologyMessage  = "I'm sorry, I encountered an error while processing your question. Could you please try asking in a different way?"
	NoAnswerMessage = "I'm sorry, I don't have an answer for that question. Can you please rephrase or ask something else?"
)

// Kind names the pipeline stage a query failed in.
type Kind string

const (
	KindRetrieval  Kind = "retrieval"
	KindPrompt     Kind = "prompt"
	KindGeneration Kind = "generation"
)

// ErrEmptyGeneration is returned when the generator produced only whitespace.
var ErrEmptyGeneration = errors.New("generator returned empty output")

// QueryError is the typed failure of one question.
type QueryError struct {
	Kind Kind
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// KindOf returns the stage of a *QueryError in err's chain, or "" when there
// is none.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
