package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"qabot/internal/domain"
	"qabot/internal/generation"
	"qabot/internal/telemetry"
)

// DefaultK is the number of passages retrieved per question.
const DefaultK = 2

// RetrievalQABot answers from passages retrieved for the question.
type RetrievalQABot struct {
	retriever domain.Retriever
	generator domain.Generator
	prompts   *generation.PromptBuilder
	k         int
	logger    *slog.Logger
	inst      *telemetry.Instruments
}

// RAGOption configures a RetrievalQABot.
type RAGOption func(*RetrievalQABot)

// WithK sets how many passages are retrieved.
func WithK(k int) RAGOption {
	return func(b *RetrievalQABot) {
		if k > 0 {
			b.k = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RAGOption {
	return func(b *RetrievalQABot) { b.logger = l }
}

// WithInstruments sets the telemetry instruments.
func WithInstruments(inst *telemetry.Instruments) RAGOption {
	return func(b *RetrievalQABot) { b.inst = inst }
}

func NewRetrievalQABot(r domain.Retriever, g domain.Generator, prompts *generation.PromptBuilder, opts ...RAGOption) (*RetrievalQABot, error) {
	if r == nil || g == nil || prompts == nil {
		return nil, fmt.Errorf("retriever, generator and prompt builder are required")
	}
	b := &RetrievalQABot{
		retriever: r,
		generator: g,
		prompts:   prompts,
		k:         DefaultK,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(b)
	}
	if b.inst == nil {
		inst, err := telemetry.Default()
		if err != nil {
			return nil, err
		}
		b.inst = inst
	}
	return b, nil
}

// GetResponse answers query, replacing any failure with ApologyMessage.
func (b *RetrievalQABot) GetResponse(ctx context.Context, query string) string {
	start := time.Now()
	answer, err := b.Answer(ctx, query)
	elapsed := float64(time.Since(start).Milliseconds())

	status := "ok"
	if err != nil {
		status = "error"
		kind := KindOf(err)
		b.logger.Error("query failed", "kind", kind, "error", err)
		b.inst.QueryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
		b.inst.Emit(ctx, otellog.SeverityError, "query failed",
			otellog.String("kind", string(kind)),
			otellog.String("error", err.Error()),
		)
		answer = ApologyMessage
	}
	b.inst.Queries.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	b.inst.QueryDuration.Record(ctx, elapsed, metric.WithAttributes(attribute.String("status", status)))
	return answer
}

// Answer runs retrieval, prompt assembly and generation. Every failure,
// including a panic in a collaborator, is returned as a *QueryError.
func (b *RetrievalQABot) Answer(ctx context.Context, query string) (answer string, err error) {
	ctx, span := b.inst.Tracer.Start(ctx, "qabot.answer", trace.WithAttributes(attribute.Int("qabot.k", b.k)))
	defer span.End()

	stage := KindRetrieval
	defer func() {
		if r := recover(); r != nil {
			answer, err = "", &QueryError{Kind: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	results, err := b.retriever.Search(ctx, query, b.k)
	if err != nil {
		return "", &QueryError{Kind: KindRetrieval, Err: err}
	}
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Chunk.Text
	}
	span.SetAttributes(attribute.Int("qabot.retrieved", len(results)))

	stage = KindPrompt
	prompt, err := b.prompts.Build(passages, query)
	if err != nil {
		return "", &QueryError{Kind: KindPrompt, Err: err}
	}

	stage = KindGeneration
	out, err := b.generator.Generate(ctx, prompt)
	if err != nil {
		return "", &QueryError{Kind: KindGeneration, Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &QueryError{Kind: KindGeneration, Err: ErrEmptyGeneration}
	}
	b.logger.Debug("answered", "retrieved", len(results), "prompt_chars", len(prompt))
	return out, nil
}
