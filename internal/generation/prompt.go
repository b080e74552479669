// Package generation assembles retrieval prompts and calls text-generation
// models.
package generation

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// Family selects the prompt template for a model.
type Family string

const (
	FamilySeq2Seq Family = "seq2seq"
	FamilyCausal  Family = "causal"
)

const (
	DefaultMaxContextChars = 512
	DefaultMaxPromptTokens = 512
)

const (
	seq2seqTemplate = "Context: {{.Context}}\n\nQuestion: {{.Question}}\n\nAnswer:"
	causalTemplate  = "Given the following context:\n\n{{.Context}}\n\nAnswer the question: {{.Question}}\n\nAnswer:"
)

// FamilyForModel guesses the family from a model name: T5-style names are
// encoder-decoder, everything else is treated as causal.
func FamilyForModel(model string) Family {
	if strings.Contains(strings.ToLower(model), "t5") {
		return FamilySeq2Seq
	}
	return FamilyCausal
}

// DefaultTemplate returns the built-in template text for f.
func DefaultTemplate(f Family) string {
	if f == FamilySeq2Seq {
		return seq2seqTemplate
	}
	return causalTemplate
}

// PromptBuilder renders a question and retrieved passages into a prompt.
type PromptBuilder struct {
	tmpl            *template.Template
	maxContextChars int
	maxPromptTokens int
}

// PromptOptions configures a PromptBuilder. Zero limits use the defaults; an
// empty Template uses the family default.
type PromptOptions struct {
	Family          Family
	Template        string
	MaxContextChars int
	MaxPromptTokens int
}

type promptData struct {
	Context  string
	Question string
}

func NewPromptBuilder(opts PromptOptions) (*PromptBuilder, error) {
	text := opts.Template
	if text == "" {
		text = DefaultTemplate(opts.Family)
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = DefaultMaxContextChars
	}
	if opts.MaxPromptTokens <= 0 {
		opts.MaxPromptTokens = DefaultMaxPromptTokens
	}
	return &PromptBuilder{
		tmpl:            tmpl,
		maxContextChars: opts.MaxContextChars,
		maxPromptTokens: opts.MaxPromptTokens,
	}, nil
}

// Build joins passages with single spaces, truncates the context, renders
// the template and truncates the prompt to the token limit.
func (b *PromptBuilder) Build(passages []string, question string) (string, error) {
	passage := TruncateRunes(strings.Join(passages, " "), b.maxContextChars)
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, promptData{Context: passage, Question: question}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return TruncateTokens(sb.String(), b.maxPromptTokens), nil
}

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

var tokenRe = regexp.MustCompile(`\S+`)

// TruncateTokens keeps the first n whitespace-separated tokens of s, with
// the original spacing between them.
func TruncateTokens(s string, n int) string {
	if n <= 0 {
		return ""
	}
	locs := tokenRe.FindAllStringIndex(s, n+1)
	if len(locs) <= n {
		return s
	}
	return s[:locs[n-1][1]]
}
