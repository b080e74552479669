package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultCutoff is the minimum similarity ratio for a fuzzy match.
const DefaultCutoff = 0.6

// QAPair is one stored question and its answer.
type QAPair struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

type qaFile struct {
	Questions []QAPair `json:"questions" yaml:"questions"`
}

// LoadQAFile reads the question list from a JSON or YAML file (chosen by
// extension; anything other than .yaml/.yml is read as JSON).
func LoadQAFile(path string) ([]QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read QA file: %w", err)
	}
	var f qaFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse QA file %s: %w", path, err)
	}
	return f.Questions, nil
}

// FuzzyMatchBot answers with the stored answer of the most similar stored
// question. It never mutates its pair list.
type FuzzyMatchBot struct {
	pairs   []QAPair
	lowered []string
	cutoff  float64
	logger  *slog.Logger
}

// FuzzyOption configures a FuzzyMatchBot.
type FuzzyOption func(*FuzzyMatchBot)

// WithCutoff overrides the similarity cutoff.
func WithCutoff(c float64) FuzzyOption {
	return func(b *FuzzyMatchBot) {
		if c > 0 {
			b.cutoff = c
		}
	}
}

// WithFuzzyLogger sets the logger.
func WithFuzzyLogger(l *slog.Logger) FuzzyOption {
	return func(b *FuzzyMatchBot) { b.logger = l }
}

func NewFuzzyMatchBot(pairs []QAPair, opts ...FuzzyOption) *FuzzyMatchBot {
	b := &FuzzyMatchBot{
		pairs:  append([]QAPair(nil), pairs...),
		cutoff: DefaultCutoff,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(b)
	}
	b.lowered = make([]string, len(b.pairs))
	for i, p := range b.pairs {
		b.lowered[i] = lower(p.Question)
	}
	return b
}

func (b *FuzzyMatchBot) GetResponse(_ context.Context, query string) string {
	q := lower(query)
	match, score, ok := closestMatch(q, b.lowered, b.cutoff)
	if !ok {
		b.logger.Debug("no fuzzy match", "query", query)
		return NoAnswerMessage
	}
	for i, l := range b.lowered {
		if l == match {
			b.logger.Debug("fuzzy match", "query", query, "question", b.pairs[i].Question, "score", score)
			return b.pairs[i].Answer
		}
	}
	return NoAnswerMessage
}

// closestMatch returns the candidate most similar to word whose ratio is at
// least cutoff. Candidates are screened with the cheap upper bounds first;
// equal scores prefer the lexically greater candidate.
func closestMatch(word string, candidates []string, cutoff float64) (string, float64, bool) {
	m := difflib.NewMatcher(nil, nil)
	m.SetSeq2(splitChars(word))
	var (
		best      string
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		m.SetSeq1(splitChars(c))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		r := m.Ratio()
		if r < cutoff {
			continue
		}
		if !found || r > bestScore || (r == bestScore && c > best) {
			best, bestScore, found = c, r, true
		}
	}
	return best, bestScore, found
}

// lower builds a Caser per call since a Caser must not be shared between
// goroutines.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}
