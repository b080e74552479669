// Package telemetry wires OpenTelemetry traces, metrics and logs for the
// bots. Exporters are configured through the standard OTEL_EXPORTER_OTLP_*
// environment variables; when telemetry is disabled the global no-op
// providers are used.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "qabot"

// Instruments holds the OTEL instruments used across the bots.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	Queries       metric.Int64Counter
	QueryFailures metric.Int64Counter
	QueryDuration metric.Float64Histogram
	IndexedChunks metric.Int64Counter
}

// Init installs OTLP HTTP exporters for traces, metrics and logs as the
// global providers. The returned shutdown function flushes and stops them.
func Init(ctx context.Context, serviceName string) (*Instruments, func(context.Context) error, error) {
	if serviceName == "" {
		serviceName = scopeName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := Default()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}
	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}
	return inst, shutdown, nil
}

// Default builds instruments from the global providers, which are no-ops
// unless Init has run.
func Default() (*Instruments, error) {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider(), global.GetLoggerProvider())
}

// New builds instruments from explicit providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider, lp otellog.LoggerProvider) (*Instruments, error) {
	meter := mp.Meter(scopeName)

	queries, err := meter.Int64Counter("qabot.queries",
		metric.WithDescription("Questions answered"),
		metric.WithUnit("{query}"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("qabot.query.failures",
		metric.WithDescription("Questions that ended in an apology, by failure kind"),
		metric.WithUnit("{query}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("qabot.query.duration",
		metric.WithDescription("Time to answer a question"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	chunks, err := meter.Int64Counter("qabot.index.chunks",
		metric.WithDescription("Chunks written to the vector store"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:        tp.Tracer(scopeName),
		Meter:         meter,
		Logger:        lp.Logger(scopeName),
		Queries:       queries,
		QueryFailures: failures,
		QueryDuration: duration,
		IndexedChunks: chunks,
	}, nil
}

// Emit writes a log record through the OTEL logger.
func (i *Instruments) Emit(ctx context.Context, severity otellog.Severity, body string, attrs ...otellog.KeyValue) {
	var rec otellog.Record
	rec.SetSeverity(severity)
	rec.SetBody(otellog.StringValue(body))
	rec.AddAttributes(attrs...)
	i.Logger.Emit(ctx, rec)
}
