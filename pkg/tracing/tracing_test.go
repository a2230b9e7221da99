package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/tracing"
)

func TestTracerNameFollowsServiceName(t *testing.T) {
	t.Cleanup(func() { _ = tracing.InitTracer(configs.TracingConfig{}) })

	require.NoError(t, tracing.InitTracer(configs.TracingConfig{ServiceName: "studio-east"}))
	assert.Equal(t, "studio-east", tracing.TracerName())

	require.NoError(t, tracing.InitTracer(configs.TracingConfig{}))
	assert.Equal(t, tracing.DefaultTracerName, tracing.TracerName())
}

func TestStartSpanUsesServiceScope(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
		_ = tracing.InitTracer(configs.TracingConfig{})
	})

	require.NoError(t, tracing.InitTracer(configs.TracingConfig{ServiceName: "studio-east"}))

	ctx, span := tracing.StartSpan(context.Background(), "ledger.Reconcile")
	assert.NotEmpty(t, tracing.TraceID(ctx))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.Reconcile", spans[0].Name)
	assert.Equal(t, "studio-east", spans[0].InstrumentationScope.Name)
}

func TestTraceIDEmptyWithoutSpan(t *testing.T) {
	assert.Empty(t, tracing.TraceID(context.Background()))
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	err := tracing.InitTracer(configs.TracingConfig{Enabled: true, ExporterType: "carrier-pigeon", SampleRate: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")

	require.NoError(t, tracing.ShutdownTracer(context.Background()))
}
