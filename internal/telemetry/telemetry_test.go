package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefault_NoopProviders(t *testing.T) {
	inst, err := Default()
	require.NoError(t, err)
	ctx := context.Background()
	inst.Queries.Add(ctx, 1)
	inst.Emit(ctx, otellog.SeverityInfo, "noop")
	_, span := inst.Tracer.Start(ctx, "noop")
	span.End()
}

func TestNew_RecordsMetricsAndSpans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	inst, err := New(tp, mp, noop.NewLoggerProvider())
	require.NoError(t, err)

	ctx := context.Background()
	_, span := inst.Tracer.Start(ctx, "qabot.answer")
	inst.Queries.Add(ctx, 2)
	inst.QueryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "generation")))
	span.End()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["qabot.queries"])
	assert.Equal(t, int64(1), sums["qabot.query.failures"])

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "qabot.answer", spans[0].Name())
}
