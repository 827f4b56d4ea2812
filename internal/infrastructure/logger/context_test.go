package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestContextValues(t *testing.T) {
	saleID := uuid.New()
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSaleID(ctx, saleID)
	ctx = WithIdempotencyKey(ctx, "checkout-42")

	assert.Equal(t, "req-1", RequestID(ctx))
	got, ok := SaleID(ctx)
	assert.True(t, ok)
	assert.Equal(t, saleID, got)
	assert.Equal(t, "checkout-42", IdempotencyKey(ctx))

	_, ok = SaleID(context.Background())
	assert.False(t, ok)
	assert.Empty(t, RequestID(context.Background()))
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", TraceID(spanContext(t)))
}

func TestL_AddsCorrelationFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	saleID := uuid.New()

	ctx := WithContext(spanContext(t), zap.New(core))
	ctx = WithRequestID(ctx, "req-7")
	ctx = WithSaleID(ctx, saleID)

	L(ctx).Info("line item added")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, saleID.String(), fields["sale_id"])
	assert.NotContains(t, fields, "idempotency_key")
}

func TestEnrich_NoFields(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, Enrich(context.Background(), base))
	assert.NotNil(t, Enrich(context.Background(), nil))
}
